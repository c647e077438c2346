package models

// Category is a Firefly transaction category.
type Category struct {
	Meta
	name string
}

// NewCategory returns a draft category referencing a Monarch id.
func NewCategory(sourceID, name string) (*Category, error) {
	if err := requireName(KindCategory, name); err != nil {
		return nil, err
	}
	return &Category{Meta: draftMeta(sourceID), name: name}, nil
}

// LoadCategory reconstructs a loaded category from persisted Firefly attributes.
func LoadCategory(id, name, notes string) (*Category, error) {
	if err := requireName(KindCategory, name); err != nil {
		return nil, err
	}
	return &Category{Meta: loadedMeta(id, notes), name: name}, nil
}

func (c *Category) Kind() Kind { return KindCategory }
func (c *Category) Label() string { return c.name }
func (c *Category) Name() string { return c.name }

func (c *Category) Payload() (map[string]any, error) {
	return map[string]any{
		"name":  c.name,
		"notes": c.annotation.String(),
	}, nil
}
