package nodes

// Projection pairs a bound select with the projector that builds results
// from its rows.
type Projection struct {
	Select    *Select
	Projector Node
}

func (n *Projection) Accept(v Visitor) string { return v.VisitProjection(n) }

// ObjectField is one named member of an Object projector.
type ObjectField struct {
	Name  string
	Value Node
}

// Object builds a result object from named fields. Fields nest.
type Object struct {
	Fields []ObjectField
}

func (n *Object) Accept(v Visitor) string { return v.VisitObject(n) }

// EntityProjector materializes a stored entity: Payload is decoded and Key
// is injected as its surrogate key.
type EntityProjector struct {
	Key     *Column
	Payload *Column
}

func (n *EntityProjector) Accept(v Visitor) string { return v.VisitEntityProjector(n) }
