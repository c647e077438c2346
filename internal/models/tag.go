package models

// Tag is a Firefly tag. Firefly names the tag's text "tag" and has no notes field,
// so the annotation is kept in the description.
type Tag struct {
	Meta
	name string
}

// NewTag returns a draft tag referencing a Monarch id.
func NewTag(sourceID, name string) (*Tag, error) {
	if err := requireName(KindTag, name); err != nil {
		return nil, err
	}
	return &Tag{Meta: draftMeta(sourceID), name: name}, nil
}

// LoadTag reconstructs a loaded tag from persisted Firefly attributes.
func LoadTag(id, name, description string) (*Tag, error) {
	if err := requireName(KindTag, name); err != nil {
		return nil, err
	}
	return &Tag{Meta: loadedMeta(id, description), name: name}, nil
}

func (t *Tag) Kind() Kind { return KindTag }
func (t *Tag) Label() string { return t.name }
func (t *Tag) Name() string { return t.name }

func (t *Tag) Payload() (map[string]any, error) {
	return map[string]any{
		"tag":         t.name,
		"description": t.annotation.String(),
	}, nil
}
