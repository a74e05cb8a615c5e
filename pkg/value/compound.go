package value

import "github.com/kristofer/weave/pkg/access"

// Named aliases for the access.Cell instantiations backing each
// compound Value kind, so the rest of the package (and callers in
// pkg/vm) can name them without repeating the generic instantiation.
type (
	stringCell        = access.Cell[string]
	bytesCell         = access.Cell[[]byte]
	vecCell           = access.Cell[[]Value]
	objectCell        = access.Cell[*Object]
	resultCell        = access.Cell[Result]
	optionCell        = access.Cell[Option]
	typedTupleCell    = access.Cell[TypedTuple]
	tupleVariantCell  = access.Cell[TupleVariant]
	typedObjectCell   = access.Cell[TypedObject]
	variantObjectCell = access.Cell[VariantObject]
	generatorStateCell = access.Cell[GeneratorState]
)
