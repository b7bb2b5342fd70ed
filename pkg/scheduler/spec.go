package scheduler

import "encoding/json"

// BriefSpec summarizes an operation spec into the handful of fields list
// views show, grounded on operation.cpp's BriefSpec derivation -- the
// scheduler never interprets the full spec, it only lifts out the keys
// every operation type is expected to carry.
type BriefSpec struct {
	Pool       string `json:"pool,omitempty"`
	InputPaths []string `json:"input_table_paths,omitempty"`
	OutputPaths []string `json:"output_table_paths,omitempty"`
}

// DeriveBriefSpec extracts a BriefSpec from a raw operation spec. Keys it
// does not recognize are left out of BriefSpec but retained verbatim in
// Operation.UnrecognizedSpec by the caller.
func DeriveBriefSpec(spec []byte) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(spec, &raw); err != nil {
		return nil, err
	}
	var brief BriefSpec
	if v, ok := raw["pool"]; ok {
		_ = json.Unmarshal(v, &brief.Pool)
	}
	if v, ok := raw["input_table_paths"]; ok {
		_ = json.Unmarshal(v, &brief.InputPaths)
	}
	if v, ok := raw["output_table_paths"]; ok {
		_ = json.Unmarshal(v, &brief.OutputPaths)
	}
	return json.Marshal(brief)
}

// recognizedSpecKeys is the set of top-level spec keys the scheduler
// understands; anything else is copied into UnrecognizedSpec verbatim.
var recognizedSpecKeys = map[string]bool{
	"pool":               true,
	"input_table_paths":  true,
	"output_table_paths": true,
	"title":              true,
	"owners":             true,
	"acl":                true,
	"weight":             true,
}

// SplitUnrecognized separates spec into its recognized and unrecognized
// portions (spec §4.3 "unrecognized_spec").
func SplitUnrecognized(spec []byte) (unrecognized []byte, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(spec, &raw); err != nil {
		return nil, err
	}
	rest := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !recognizedSpecKeys[k] {
			rest[k] = v
		}
	}
	if len(rest) == 0 {
		return nil, nil
	}
	return json.Marshal(rest)
}
