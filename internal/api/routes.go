package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ngffio/pixelbuffer/internal/cache"
	"github.com/ngffio/pixelbuffer/internal/pixelbuffer"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *RootRegistry
	CORSOrigins []string
	Cache       *cache.Manager
}

// NewRouter creates the demo HTTP router: one route tree per configured
// root, mirroring the public API surface of spec.md §6's operation table.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Pixel-Dtype", "X-Byte-Width"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/api/roots", rootsHandler(cfg.Registry))

	r.Route("/r/{root}", func(r chi.Router) {
		r.Get("/metadata", metadataHandler(cfg.Registry))
		r.Get("/tile/{level}/{z}/{c}/{t}/{x}/{y}/{w}/{h}", tileHandler(cfg.Registry, cfg.Cache))
		r.Get("/row/{level}/{z}/{c}/{t}/{y}", rowHandler(cfg.Registry))
		r.Get("/col/{level}/{z}/{c}/{t}/{x}", colHandler(cfg.Registry))
		r.Get("/plane/{level}/{z}/{c}/{t}", planeHandler(cfg.Registry))
		r.Get("/stack/{level}/{c}/{t}", stackHandler(cfg.Registry))
		r.Get("/timepoint/{level}/{t}", timepointHandler(cfg.Registry))
	})

	return r
}

func rootsHandler(registry *RootRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"default": registry.DefaultName(),
			"title":   registry.Title(),
			"roots":   registry.Roots(),
		})
	}
}

// openLeveled opens a fresh PixelBuffer for the named root (spec.md §5:
// resolution-level state is per-caller, never shared across requests)
// and, if a "level" path value other than "-" is given, switches it
// to that public resolution level before returning.
func openLeveled(r *http.Request, registry *RootRegistry) (*pixelbuffer.PixelBuffer, error) {
	root := chi.URLParam(r, "root")
	pb, err := registry.Open(r.Context(), root)
	if err != nil {
		return nil, err
	}

	levelStr := chi.URLParam(r, "level")
	if levelStr == "" || levelStr == "-" {
		return pb, nil
	}
	level, err := strconv.Atoi(levelStr)
	if err != nil {
		pb.Close()
		return nil, &pixelbuffer.Error{Kind: pixelbuffer.OutOfRange, Message: fmt.Sprintf("invalid resolution level %q", levelStr)}
	}
	if err := pb.SetResolutionLevel(level); err != nil {
		pb.Close()
		return nil, err
	}
	return pb, nil
}

func writeError(w http.ResponseWriter, err error) {
	var pbErr *pixelbuffer.Error
	if !errors.As(err, &pbErr) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Error(w, pbErr.Error(), statusForKind(pbErr.Kind))
}

func statusForKind(kind pixelbuffer.Kind) int {
	switch kind {
	case pixelbuffer.InvalidUri, pixelbuffer.InvalidMultiscales, pixelbuffer.OutOfRange, pixelbuffer.DimensionsOutOfBounds:
		return http.StatusBadRequest
	case pixelbuffer.RequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case pixelbuffer.UnsupportedDataType, pixelbuffer.Unsupported:
		return http.StatusNotImplemented
	case pixelbuffer.InvalidCredentialsConfig:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func writeRegion(w http.ResponseWriter, pb *pixelbuffer.PixelBuffer, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Pixel-Dtype", pb.GetPixelsType().String())
	w.Header().Set("X-Byte-Width", strconv.Itoa(pb.ByteWidth()))
	w.Write(data)
}

func metadataHandler(registry *RootRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pb, err := openLeveled(r, registry)
		if err != nil {
			writeError(w, err)
			return
		}
		defer pb.Close()

		descs := pb.GetResolutionDescriptions()
		tileW, tileH := pb.GetTileSize()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sizeX":                  pb.SizeX(),
			"sizeY":                  pb.SizeY(),
			"sizeZ":                  pb.SizeZ(),
			"sizeC":                  pb.SizeC(),
			"sizeT":                  pb.SizeT(),
			"resolutionLevels":       pb.ResolutionLevels(),
			"resolutionDescriptions": descs,
			"tileWidth":              tileW,
			"tileHeight":             tileH,
			"pixelsType":             pb.GetPixelsType().String(),
			"byteWidth":              pb.ByteWidth(),
			"isSigned":               pb.IsSigned(),
			"isFloat":                pb.IsFloat(),
		})
	}
}

func tileHandler(registry *RootRegistry, cacheMgr *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		z, zerr := strconv.Atoi(chi.URLParam(r, "z"))
		c, cerr := strconv.Atoi(chi.URLParam(r, "c"))
		t, terr := strconv.Atoi(chi.URLParam(r, "t"))
		x, xerr := strconv.Atoi(chi.URLParam(r, "x"))
		y, yerr := strconv.Atoi(chi.URLParam(r, "y"))
		width, werr := strconv.Atoi(chi.URLParam(r, "w"))
		height, herr := strconv.Atoi(chi.URLParam(r, "h"))
		if zerr != nil || cerr != nil || terr != nil || xerr != nil || yerr != nil || werr != nil || herr != nil {
			http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
			return
		}

		pb, err := openLeveled(r, registry)
		if err != nil {
			writeError(w, err)
			return
		}
		defer pb.Close()

		root := chi.URLParam(r, "root")
		// "-" (or no level) leaves the buffer at its construction
		// default, the coarsest public level L-1.
		level := pb.ResolutionLevels() - 1
		if levelStr := chi.URLParam(r, "level"); levelStr != "" && levelStr != "-" {
			level, _ = strconv.Atoi(levelStr)
		}
		key := cache.RegionKey(root, level, z, c, t, x, y, width, height)
		if cacheMgr != nil {
			if data, ok := cacheMgr.GetRegion(key); ok {
				writeRegion(w, pb, data)
				return
			}
		}

		data, err := pb.GetTile(z, c, t, x, y, width, height)
		if err != nil {
			writeError(w, err)
			return
		}
		if cacheMgr != nil {
			cacheMgr.SetRegion(key, data)
		}
		writeRegion(w, pb, data)
	}
}

func rowHandler(registry *RootRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		y, yerr := strconv.Atoi(chi.URLParam(r, "y"))
		z, zerr := strconv.Atoi(chi.URLParam(r, "z"))
		c, cerr := strconv.Atoi(chi.URLParam(r, "c"))
		t, terr := strconv.Atoi(chi.URLParam(r, "t"))
		if yerr != nil || zerr != nil || cerr != nil || terr != nil {
			http.Error(w, "invalid row coordinates", http.StatusBadRequest)
			return
		}

		pb, err := openLeveled(r, registry)
		if err != nil {
			writeError(w, err)
			return
		}
		defer pb.Close()

		data, err := pb.GetRow(y, z, c, t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRegion(w, pb, data)
	}
}

func colHandler(registry *RootRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		x, xerr := strconv.Atoi(chi.URLParam(r, "x"))
		z, zerr := strconv.Atoi(chi.URLParam(r, "z"))
		c, cerr := strconv.Atoi(chi.URLParam(r, "c"))
		t, terr := strconv.Atoi(chi.URLParam(r, "t"))
		if xerr != nil || zerr != nil || cerr != nil || terr != nil {
			http.Error(w, "invalid col coordinates", http.StatusBadRequest)
			return
		}

		pb, err := openLeveled(r, registry)
		if err != nil {
			writeError(w, err)
			return
		}
		defer pb.Close()

		data, err := pb.GetCol(x, z, c, t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRegion(w, pb, data)
	}
}

func planeHandler(registry *RootRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		z, zerr := strconv.Atoi(chi.URLParam(r, "z"))
		c, cerr := strconv.Atoi(chi.URLParam(r, "c"))
		t, terr := strconv.Atoi(chi.URLParam(r, "t"))
		if zerr != nil || cerr != nil || terr != nil {
			http.Error(w, "invalid plane coordinates", http.StatusBadRequest)
			return
		}

		pb, err := openLeveled(r, registry)
		if err != nil {
			writeError(w, err)
			return
		}
		defer pb.Close()

		data, err := pb.GetPlane(z, c, t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRegion(w, pb, data)
	}
}

func stackHandler(registry *RootRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, cerr := strconv.Atoi(chi.URLParam(r, "c"))
		t, terr := strconv.Atoi(chi.URLParam(r, "t"))
		if cerr != nil || terr != nil {
			http.Error(w, "invalid stack coordinates", http.StatusBadRequest)
			return
		}

		pb, err := openLeveled(r, registry)
		if err != nil {
			writeError(w, err)
			return
		}
		defer pb.Close()

		data, err := pb.GetStack(c, t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRegion(w, pb, data)
	}
}

func timepointHandler(registry *RootRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, terr := strconv.Atoi(chi.URLParam(r, "t"))
		if terr != nil {
			http.Error(w, "invalid timepoint coordinate", http.StatusBadRequest)
			return
		}

		pb, err := openLeveled(r, registry)
		if err != nil {
			writeError(w, err)
			return
		}
		defer pb.Close()

		data, err := pb.GetTimepoint(t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRegion(w, pb, data)
	}
}
