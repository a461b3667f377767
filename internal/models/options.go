package models

// Provider options arrive from JSONC config, where every number decodes as
// float64. These helpers convert to what the model SDKs expect.

func floatOption(opts map[string]any, key string) (float32, bool) {
	v, ok := opts[key].(float64)
	if !ok {
		return 0, false
	}
	return float32(v), true
}

func intOption(opts map[string]any, key string) (int, bool) {
	v, ok := opts[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}
