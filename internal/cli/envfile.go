package cli

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/igorsal/routewarden/internal/models"
)

// environmentFile is the YAML layout used by env import and export. The
// variables are a list because their order decides which duplicate key wins.
type environmentFile struct {
	Name      string         `yaml:"name,omitempty"`
	Variables []variableLine `yaml:"variables"`
}

type variableLine struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	// Active defaults to true when omitted
	Active *bool `yaml:"active,omitempty"`
}

func readEnvironmentFile(r io.Reader) (environmentFile, error) {
	var file environmentFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return environmentFile{}, nil
		}
		return environmentFile{}, fmt.Errorf("failed to parse environment YAML: %w", err)
	}
	return file, nil
}

func writeEnvironmentFile(w io.Writer, env models.Environment) error {
	file := environmentFile{
		Name:      env.Name,
		Variables: make([]variableLine, 0, len(env.Variables)),
	}
	for _, v := range env.Variables {
		line := variableLine{Key: v.Key, Value: v.Value}
		if !v.Active {
			inactive := false
			line.Active = &inactive
		}
		file.Variables = append(file.Variables, line)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}
	return enc.Close()
}

// keyValues turns the file's variables into a set with fresh ids
func (f environmentFile) keyValues() models.KeyValueSet {
	set := make(models.KeyValueSet, 0, len(f.Variables))
	for _, line := range f.Variables {
		active := line.Active == nil || *line.Active
		set = append(set, models.KeyValuePair{
			ID:     models.NewID(),
			Key:    line.Key,
			Value:  line.Value,
			Active: active,
		})
	}
	return set
}
