package submission

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/intake-cli/internal/completeness"
	"github.com/sells-group/intake-cli/internal/extract"
)

//go:embed overrides.schema.json
var overridesSchema []byte

// Overrides replaces parts of the built-in analyzer and checker
// configuration. Requirement lists replace whole categories; mapping
// entries replace whole fields.
type Overrides struct {
	Requirements map[string][]string `yaml:"requirements" json:"requirements"`
	FieldMapping extract.Mapping     `yaml:"field_mapping" json:"field_mapping"`
	Thresholds   ThresholdOverrides  `yaml:"thresholds" json:"thresholds"`
	MaxNextSteps int                 `yaml:"max_next_steps" json:"max_next_steps"`
}

// ThresholdOverrides holds optional replacements for the quality thresholds.
type ThresholdOverrides struct {
	High *float64 `yaml:"high" json:"high"`
	Good *float64 `yaml:"good" json:"good"`
}

// IsZero reports whether o overrides nothing.
func (o Overrides) IsZero() bool {
	return len(o.Requirements) == 0 && len(o.FieldMapping) == 0 &&
		o.Thresholds.High == nil && o.Thresholds.Good == nil && o.MaxNextSteps == 0
}

func (o Overrides) requirementSet() completeness.RequirementSet {
	keys := make([]string, 0, len(o.Requirements))
	for k := range o.Requirements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rs completeness.RequirementSet
	for _, k := range keys {
		c, err := completeness.ParseCategory(k)
		if err != nil || c == completeness.Required {
			continue
		}
		rs = append(rs, completeness.Requirement{Category: c, Fields: o.Requirements[k]})
	}
	return rs
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("overrides.schema.json", bytes.NewReader(overridesSchema)); err != nil {
		return nil, eris.Wrap(err, "submission: add overrides schema")
	}
	schema, err := compiler.Compile("overrides.schema.json")
	if err != nil {
		return nil, eris.Wrap(err, "submission: compile overrides schema")
	}
	return schema, nil
})

// LoadOverrides reads a YAML or JSON overrides file.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, eris.Wrapf(err, "submission: read overrides %s", path)
	}
	o, err := ParseOverrides(data)
	if err != nil {
		return Overrides{}, eris.Wrapf(err, "submission: overrides %s", path)
	}
	return o, nil
}

// ParseOverrides validates data against the overrides schema and decodes
// it. JSON is accepted as a subset of YAML.
func ParseOverrides(data []byte) (Overrides, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, eris.Wrap(err, "submission: parse overrides")
	}
	if raw == nil {
		return Overrides{}, nil
	}

	doc, err := toJSONValue(raw)
	if err != nil {
		return Overrides{}, err
	}
	schema, err := compileSchema()
	if err != nil {
		return Overrides{}, err
	}
	if err := schema.Validate(doc); err != nil {
		return Overrides{}, eris.Wrap(err, "submission: overrides do not match schema")
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overrides{}, eris.Wrap(err, "submission: decode overrides")
	}
	return o, nil
}

// toJSONValue round-trips a YAML value through encoding/json so the schema
// validator sees JSON types.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "submission: overrides are not representable as JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, eris.Wrap(err, "submission: re-decode overrides")
	}
	return out, nil
}
