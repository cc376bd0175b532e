package authz

import (
	"os"

	"gopkg.in/yaml.v3"

	rxerr "github.com/relexro/authz-core/pkg/errors"
)

// LoadOverridesFile reads policy overrides from a YAML file shaped as
// resource kind → role → list of extra actions:
//
//	party:
//	  owner: [export]
//	case:
//	  auditor: [read, list]
//
// Overrides extend the compiled-in policy and can never revoke a grant.
// An empty path returns nil overrides.
func LoadOverridesFile(path string) (Overrides, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rxerr.Wrapf(err, rxerr.CodeInternalConfiguration,
			"authz: failed to read policy overrides file %q", path)
	}

	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, rxerr.Wrapf(err, rxerr.CodeInternalConfiguration,
			"authz: policy overrides file %q is not valid YAML", path)
	}
	return ov, nil
}
