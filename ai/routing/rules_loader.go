package routing

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk shape of a policy rule set.
type ruleFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// LoadRuleFile reads policy rules from a YAML file. A missing file is not an
// error; it returns an empty rule set so deployments without custom rules
// need no placeholder file.
func LoadRuleFile(path string) ([]RuleConfig, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read rule file %s", path)
	}

	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrapf(err, "parse rule file %s", path)
	}
	return file.Rules, nil
}
