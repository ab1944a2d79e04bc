package managers

import (
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// treeManager is the shared base for the statement managers. It holds the
// transformer pipeline common to Insert, Update and Delete.
type treeManager struct {
	transformers []plugins.Transformer
}

// addTransformer appends a transformer plugin to the pipeline.
func (tm *treeManager) addTransformer(t plugins.Transformer) {
	tm.transformers = append(tm.transformers, t)
}

// Transformers returns the registered transformer pipeline.
func (tm *treeManager) Transformers() []plugins.Transformer {
	return tm.transformers
}

// toSQLParams resets a parameterizer (if present), calls the provided
// generate function, and returns SQL + params. A visitor that recorded an
// error fails the call.
func toSQLParams(v nodes.Visitor, generate func(nodes.Visitor) (string, error)) (string, []any, error) {
	p, _ := v.(nodes.Parameterizer)
	if p != nil {
		p.Reset()
	}

	sql, err := generate(v)
	if err != nil {
		return "", nil, err
	}
	if e, ok := v.(interface{ Err() error }); ok && e.Err() != nil {
		return "", nil, e.Err()
	}

	if p != nil {
		return sql, p.Params(), nil
	}
	return sql, nil, nil
}
