package definition

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/fjordsim/sweepforge/internal/address"
	"github.com/fjordsim/sweepforge/internal/space"
)

// hclFile is the top-level shape of an .hcl run definition: labelled
// database and study blocks in file order.
type hclFile struct {
	Databases []*hclObject `hcl:"database,block"`
	Studies   []*hclObject `hcl:"study,block"`
}

// hclObject mirrors Object. Everything except the label is optional at the
// schema level so that incomplete definitions surface through the same field
// verification as the other forms, not as decode diagnostics.
type hclObject struct {
	Identifier            string          `hcl:"identifier,label"`
	JobScript             string          `hcl:"job_script,optional"`
	Program               string          `hcl:"program,optional"`
	ProgramOptions        string          `hcl:"program_options,optional"`
	OutputDirectory       string          `hcl:"output_directory,optional"`
	OutputDirPrefix       *string         `hcl:"output_dir_prefix,optional"`
	RequiredFiles         []string        `hcl:"required_files,optional"`
	JobScriptDependencies []string        `hcl:"job_script_dependencies,optional"`
	ResultFiles           []string        `hcl:"result_files,optional"`
	Parameters            []*hclParameter `hcl:"parameter,block"`
}

type hclParameter struct {
	Name     string         `hcl:"name,label"`
	Database string         `hcl:"database,optional"`
	Target   string         `hcl:"target,optional"`
	URI      hcl.Expression `hcl:"uri,optional"`
	Values   hcl.Expression `hcl:"values,optional"`

	// DisparateURI is the legacy spelling of Disparate.
	Disparate    bool `hcl:"disparate,optional"`
	DisparateURI bool `hcl:"disparate_uri,optional"`
}

func loadHCL(path string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", path, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", path, diags)
	}

	def := &Definition{}
	for _, h := range parsed.Databases {
		obj, err := objectFromHCL(h)
		if err != nil {
			return nil, fmt.Errorf("%s: database %q: %w", path, h.Identifier, err)
		}
		def.Databases = append(def.Databases, obj)
	}
	for _, h := range parsed.Studies {
		obj, err := objectFromHCL(h)
		if err != nil {
			return nil, fmt.Errorf("%s: study %q: %w", path, h.Identifier, err)
		}
		def.Studies = append(def.Studies, obj)
	}
	return def, nil
}

func objectFromHCL(h *hclObject) (*Object, error) {
	o := &Object{
		Identifier:            h.Identifier,
		JobScript:             h.JobScript,
		Program:               h.Program,
		ProgramOptions:        h.ProgramOptions,
		OutputDirectory:       h.OutputDirectory,
		OutputDirPrefix:       DefaultOutputDirPrefix,
		RequiredFiles:         h.RequiredFiles,
		JobScriptDependencies: h.JobScriptDependencies,
		ResultFiles:           h.ResultFiles,
	}
	if h.OutputDirPrefix != nil {
		o.OutputDirPrefix = *h.OutputDirPrefix
	}

	params := make([]space.Param, 0, len(h.Parameters))
	for _, hp := range h.Parameters {
		p := space.Param{
			Name:      hp.Name,
			Target:    hp.Target,
			Database:  hp.Database,
			Disparate: hp.Disparate || hp.DisparateURI,
		}

		if hp.URI != nil {
			raw, err := evalToRaw(hp.URI)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: uri: %w", hp.Name, err)
			}
			if p.Address, err = address.FromRaw(raw); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", hp.Name, err)
			}
		}

		if hp.Values != nil {
			raw, err := evalToRaw(hp.Values)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: values: %w", hp.Name, err)
			}
			items, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("parameter %q: field \"values\" must be a list, got %T", hp.Name, raw)
			}
			p.Values = items
		}

		params = append(params, p)
	}

	sp, err := space.New(params)
	if err != nil {
		return nil, err
	}
	o.Space = sp
	return o, nil
}

// evalToRaw evaluates a literal expression with no surrounding scope and
// converts the result to document values.
func evalToRaw(expr hcl.Expression) (any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToRaw(val)
}

// ctyToRaw converts a cty.Value into the generic value model used by the
// rest of the system. Numbers become json.Number so their rendering stays
// stable through patch and save.
func ctyToRaw(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch ty {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		return json.Number(val.AsBigFloat().Text('g', -1)), nil
	case cty.Bool:
		return val.True(), nil
	}
	if ty.IsTupleType() || ty.IsListType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			conv, err := ctyToRaw(v)
			if err != nil {
				return nil, err
			}
			out = append(out, conv)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s in run definition", ty.FriendlyName())
}
