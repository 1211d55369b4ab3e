package multiscale

import "encoding/json"

// decodeAttributes parses a ".zattrs"/".zgroup" JSON object into a
// free-form attribute map, the way spec.md §3 describes
// "rootAttributes: Map<String, Any>".
func decodeAttributes(raw []byte) (map[string]interface{}, error) {
	var attrs map[string]interface{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
