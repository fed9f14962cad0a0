package convert

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/machinefabric/capneg-go/constraint"
)

// catalogFile is the YAML document shape for external converter catalogs:
//
//	converters:
//	  - node_type: audio.resample
//	    from: audio
//	    to: audio
//	    fields: [sample_rate]
//	    default_params:
//	      quality: high
//	    params_schema:
//	      type: object
type catalogFile struct {
	Converters []catalogEntry `yaml:"converters"`
}

type catalogEntry struct {
	NodeType      string         `yaml:"node_type"`
	From          string         `yaml:"from"`
	To            string         `yaml:"to"`
	Fields        []string       `yaml:"fields"`
	DefaultParams map[string]any `yaml:"default_params"`
	ParamsSchema  map[string]any `yaml:"params_schema"`
	Description   string         `yaml:"description"`
}

// LoadCatalog reads a YAML converter catalog and registers every entry.
// Registration stops at the first invalid entry so a bad catalog never
// half-populates the registry silently.
func LoadCatalog(r *Registry, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	for i, entry := range file.Converters {
		def := Definition{
			NodeType:      entry.NodeType,
			From:          constraint.Modality(entry.From),
			To:            constraint.Modality(entry.To),
			Fields:        entry.Fields,
			DefaultParams: entry.DefaultParams,
			ParamsSchema:  entry.ParamsSchema,
			Description:   entry.Description,
		}
		if err := r.Register(def); err != nil {
			return fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	return nil
}
