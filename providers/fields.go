package providers

// FieldKind tells the form how to render and collect a field
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindPassword    FieldKind = "password"
	KindSelect      FieldKind = "select"
	KindMultiSelect FieldKind = "multiselect"
)

// Option is one choice of a select field or credential type list
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled,omitempty"`
}

// FieldConfig describes one dynamic input of the cloud form
type FieldConfig struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"type"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	HelpText    string    `json:"helpText,omitempty"`
}

// Secret reports whether the field value must be masked on display
func (f FieldConfig) Secret() bool {
	return f.Kind == KindPassword
}

func (f FieldConfig) clone() FieldConfig {
	if f.Options != nil {
		f.Options = append([]Option(nil), f.Options...)
	}
	return f
}

func cloneFields(fields []FieldConfig) []FieldConfig {
	out := make([]FieldConfig, len(fields))
	for i, f := range fields {
		out[i] = f.clone()
	}
	return out
}
