package entity

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Document is an entity whose payload is an arbitrary JSON object. It
// serves tables whose shape is only known from configuration.
type Document struct {
	id     int64
	Fields map[string]any
}

// NewDocument wraps fields, which may be nil.
func NewDocument(fields map[string]any) *Document {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Document{Fields: fields}
}

func (d *Document) EntityID() int64      { return d.id }
func (d *Document) SetEntityID(id int64) { d.id = id }

func (d *Document) EntityWebID() string {
	s, _ := d.Fields["WebId"].(string)
	return s
}

func (d *Document) SetEntityWebID(id string) { d.Fields["WebId"] = id }

func (d *Document) StampCreated(actor string, at time.Time) {
	d.Fields["CreatedBy"] = actor
	d.Fields["CreatedDate"] = at.Format(time.RFC3339Nano)
	d.StampChanged(actor, at)
}

func (d *Document) StampChanged(actor string, at time.Time) {
	d.Fields["ChangedBy"] = actor
	d.Fields["ChangedDate"] = at.Format(time.RFC3339Nano)
}

// Get returns the value at a dotted member path.
func (d *Document) Get(path string) (any, bool) {
	var cur any = d.Fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores v at a dotted member path, creating intermediate objects.
func (d *Document) Set(path string, v any) {
	parts := strings.Split(path, ".")
	m := d.Fields
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Fields)
}

func (d *Document) UnmarshalJSON(b []byte) error {
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	d.Fields = fields
	return nil
}

// DocumentMapping maps meta onto Documents. Promoted values are read by
// member path; integer columns are narrowed from JSON numbers.
func DocumentMapping(meta Meta) *Mapping[*Document] {
	return &Mapping[*Document]{
		Meta: meta,
		New:  func() *Document { return NewDocument(nil) },
		Values: func(d *Document) map[string]any {
			out := make(map[string]any, len(meta.Columns))
			for _, c := range meta.Columns {
				v, ok := d.Get(c.Field)
				if !ok {
					continue
				}
				if f, isFloat := v.(float64); isFloat && c.Type == TypeInt {
					v = int64(f)
				}
				out[c.Field] = v
			}
			return out
		},
	}
}
