// Package definition loads run definitions: the databases and studies one
// invocation materializes and submits, together with their parameter spaces.
//
// Three on-disk forms are accepted, dispatched on the file suffix: .json
// (comment-tolerant), .yaml/.yml, and .hcl. All three map onto the same
// model, so the rest of the system never knows which form was used.
package definition

import (
	"errors"
	"fmt"

	"github.com/fjordsim/sweepforge/internal/address"
	"github.com/fjordsim/sweepforge/internal/document"
	"github.com/fjordsim/sweepforge/internal/space"
)

// DefaultOutputDirPrefix names run directories when a definition does not
// choose its own prefix.
const DefaultOutputDirPrefix = "run_"

// Definition is the top-level run definition: producer databases plus the
// studies that consume them.
type Definition struct {
	Databases []*Object
	Studies   []*Object
}

// Object is one database or study definition. Databases and studies share a
// shape; only how their combinations are obtained differs.
type Object struct {
	Identifier      string
	JobScript       string
	Program         string
	ProgramOptions  string
	OutputDirectory string
	OutputDirPrefix string

	// RequiredFiles is nil when the field was absent, as opposed to
	// declared empty. Verification relies on the distinction.
	RequiredFiles         []string
	JobScriptDependencies []string
	ResultFiles           []string

	Space *space.Space
}

// requiredFields is the canonical reporting order for verification.
var requiredFields = []string{
	"identifier", "job_script", "required_files", "parameter_space", "program",
}

// MissingFields reports which required fields the object lacks, in canonical
// order. Empty means the object is well-formed.
func (o *Object) MissingFields() []string {
	var missing []string
	for _, f := range requiredFields {
		switch f {
		case "identifier":
			if o.Identifier == "" {
				missing = append(missing, f)
			}
		case "job_script":
			if o.JobScript == "" {
				missing = append(missing, f)
			}
		case "required_files":
			if o.RequiredFiles == nil {
				missing = append(missing, f)
			}
		case "parameter_space":
			if o.Space == nil {
				missing = append(missing, f)
			}
		case "program":
			if o.Program == "" {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

// Verify checks every database and study for its required fields, failing on
// the first incomplete object.
func (d *Definition) Verify() error {
	for _, db := range d.Databases {
		if missing := db.MissingFields(); len(missing) > 0 {
			return fmt.Errorf("database %q is missing fields: %v", db.Identifier, missing)
		}
	}
	for _, st := range d.Studies {
		if missing := st.MissingFields(); len(missing) > 0 {
			return fmt.Errorf("study %q is missing fields: %v", st.Identifier, missing)
		}
	}
	return nil
}

// Database returns the database with the given identifier.
func (d *Definition) Database(identifier string) (*Object, bool) {
	for _, db := range d.Databases {
		if db.Identifier == identifier {
			return db, true
		}
	}
	return nil, false
}

// fromDocument maps a parsed document tree (the .json and .yaml forms) onto
// the model. Key order of parameter spaces is preserved.
func fromDocument(root any) (*Definition, error) {
	doc, ok := root.(*document.Map)
	if !ok {
		return nil, fmt.Errorf("run definition must be an object, got %T", root)
	}

	def := &Definition{}

	if raw, ok := doc.Get("databases"); ok {
		seq, ok := raw.(*document.Seq)
		if !ok {
			return nil, errors.New("'databases' should be a list")
		}
		for i := 0; i < seq.Len(); i++ {
			obj, err := objectFromValue(seq.At(i))
			if err != nil {
				return nil, fmt.Errorf("databases[%d]: %w", i, err)
			}
			def.Databases = append(def.Databases, obj)
		}
	}

	raw, ok := doc.Get("studies")
	if !ok {
		return nil, errors.New("no studies present in run definition")
	}
	seq, ok := raw.(*document.Seq)
	if !ok {
		return nil, errors.New("'studies' should be a list")
	}
	for i := 0; i < seq.Len(); i++ {
		obj, err := objectFromValue(seq.At(i))
		if err != nil {
			return nil, fmt.Errorf("studies[%d]: %w", i, err)
		}
		def.Studies = append(def.Studies, obj)
	}

	return def, nil
}

func objectFromValue(v any) (*Object, error) {
	m, ok := v.(*document.Map)
	if !ok {
		return nil, fmt.Errorf("definition entry must be an object, got %T", v)
	}

	o := &Object{OutputDirPrefix: DefaultOutputDirPrefix}

	var err error
	if o.Identifier, err = stringField(m, "identifier"); err != nil {
		return nil, err
	}
	if o.JobScript, err = stringField(m, "job_script"); err != nil {
		return nil, err
	}
	if o.Program, err = stringField(m, "program"); err != nil {
		return nil, err
	}
	if o.ProgramOptions, err = stringField(m, "program_options"); err != nil {
		return nil, err
	}
	if o.OutputDirectory, err = stringField(m, "output_directory"); err != nil {
		return nil, err
	}
	if raw, ok := m.Get("output_dir_prefix"); ok {
		prefix, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field \"output_dir_prefix\" must be a string, got %T", raw)
		}
		o.OutputDirPrefix = prefix
	}
	if o.RequiredFiles, err = stringListField(m, "required_files"); err != nil {
		return nil, err
	}
	if o.JobScriptDependencies, err = stringListField(m, "job_script_dependencies"); err != nil {
		return nil, err
	}
	if o.ResultFiles, err = stringListField(m, "result_files"); err != nil {
		return nil, err
	}

	if raw, ok := m.Get("parameter_space"); ok {
		pspace, ok := raw.(*document.Map)
		if !ok {
			return nil, fmt.Errorf("field \"parameter_space\" must be an object, got %T", raw)
		}
		if o.Space, err = spaceFromMap(pspace); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func spaceFromMap(pspace *document.Map) (*space.Space, error) {
	keys := pspace.Keys()
	params := make([]space.Param, 0, len(keys))
	for _, key := range keys {
		raw, _ := pspace.Get(key)
		pm, ok := raw.(*document.Map)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be an object, got %T", key, raw)
		}

		p := space.Param{Name: key}
		var err error
		if p.Target, err = stringField(pm, "target"); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		if p.Database, err = stringField(pm, "database"); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		if rawURI, ok := pm.Get("uri"); ok {
			p.Address, err = address.FromRaw(plainValue(rawURI))
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", key, err)
			}
		}
		if rawValues, ok := pm.Get("values"); ok {
			seq, ok := rawValues.(*document.Seq)
			if !ok {
				return nil, fmt.Errorf("parameter %q: field \"values\" must be a list, got %T", key, rawValues)
			}
			p.Values = make([]any, seq.Len())
			for i := range p.Values {
				p.Values[i] = seq.At(i)
			}
		}
		// "disparate_uri" is accepted as a legacy spelling
		rawDisparate, ok := pm.Get("disparate")
		if !ok {
			rawDisparate, ok = pm.Get("disparate_uri")
		}
		if ok {
			b, ok := rawDisparate.(bool)
			if !ok {
				return nil, fmt.Errorf("parameter %q: field \"disparate\" must be a boolean, got %T", key, rawDisparate)
			}
			p.Disparate = b
		}
		params = append(params, p)
	}
	return space.New(params)
}

func stringField(m *document.Map, key string) (string, error) {
	raw, ok := m.Get(key)
	if !ok {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, raw)
	}
	return s, nil
}

func stringListField(m *document.Map, key string) ([]string, error) {
	raw, ok := m.Get(key)
	if !ok {
		return nil, nil
	}
	seq, ok := raw.(*document.Seq)
	if !ok {
		return nil, fmt.Errorf("field %q must be a list, got %T", key, raw)
	}
	out := make([]string, seq.Len())
	for i := range out {
		s, ok := seq.At(i).(string)
		if !ok {
			return nil, fmt.Errorf("field %q must contain strings, got %T", key, seq.At(i))
		}
		out[i] = s
	}
	return out, nil
}

// plainValue strips document containers down to plain Go shapes so addresses
// can be built from any loader's output.
func plainValue(v any) any {
	seq, ok := v.(*document.Seq)
	if !ok {
		return v
	}
	out := make([]any, seq.Len())
	for i := range out {
		out[i] = plainValue(seq.At(i))
	}
	return out
}
