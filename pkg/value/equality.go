package value

// Equal implements the deep-equality relation from spec.md §3.1: two
// compound values are equal when their shapes and all their fields
// compare equal, not when they share the same cell. Every compound
// comparison takes a shared borrow on both sides for the duration of
// the traversal so that a reentrant mutation (a user ADD_ASSIGN
// handler, say) cannot observe or create a torn read.
//
// Equal does not consult the PARTIAL_EQ protocol fallback itself: that
// happens one layer up, in the VM's comparison opcode, which tries
// Equal first and only falls back to an instance function when the
// receiver's ValueType has one registered. Equal here is the built-in,
// structural half of that two-tier scheme.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TUnit:
		return true
	case TBool:
		return a.AsBool() == b.AsBool()
	case TByte:
		return a.AsByte() == b.AsByte()
	case TChar:
		return a.AsChar() == b.AsChar()
	case TInteger:
		return a.AsInteger() == b.AsInteger()
	case TFloat:
		return a.AsFloat() == b.AsFloat()
	case TType:
		return a.AsType() == b.AsType()
	case TStaticString:
		return a.AsStaticString() == b.AsStaticString()
	case TString:
		return equalStringCells(a.StringCell(), b.StringCell())
	case TBytes:
		return equalBytesCells(a.BytesCell(), b.BytesCell())
	case TVec:
		return equalVecCells(a.VecCell(), b.VecCell())
	case TTuple:
		return equalVecCells(a.TupleCell(), b.TupleCell())
	case TObject:
		return equalObjectCells(a.ObjectCell(), b.ObjectCell())
	case TResult:
		return equalResultCells(a.ResultCell(), b.ResultCell())
	case TOption:
		return equalOptionCells(a.OptionCell(), b.OptionCell())
	case TTypedTuple:
		return equalTypedTupleCells(a.TypedTupleCell(), b.TypedTupleCell())
	case TTupleVariant:
		return equalTupleVariantCells(a.TupleVariantCell(), b.TupleVariantCell())
	case TTypedObject:
		return equalTypedObjectCells(a.TypedObjectCell(), b.TypedObjectCell())
	case TVariantObject:
		return equalVariantObjectCells(a.VariantObjectCell(), b.VariantObjectCell())
	default:
		// Future, Generator, Stream, Function, GeneratorState: identity
		// only. These either have no well-defined structural equality
		// (a suspended computation) or are compared by the VM via the
		// protocol fallback instead.
		return sameCellIdentity(a, b)
	}
}

func equalStringCells(a, b *stringCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	return *ga.Value() == *gb.Value()
}

func equalBytesCells(a, b *bytesCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	av, bv := *ga.Value(), *gb.Value()
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if av[i] != bv[i] {
			return false
		}
	}
	return true
}

func equalVecCells(a, b *vecCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	av, bv := *ga.Value(), *gb.Value()
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if !Equal(av[i], bv[i]) {
			return false
		}
	}
	return true
}

func equalObjectCells(a, b *objectCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	ao, bo := *ga.Value(), *gb.Value()
	if ao.Len() != bo.Len() {
		return false
	}
	for _, k := range ao.Keys() {
		av, _ := ao.Get(k)
		bv, ok := bo.Get(k)
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

func equalResultCells(a, b *resultCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	ar, br := *ga.Value(), *gb.Value()
	return ar.Ok == br.Ok && Equal(ar.Value, br.Value)
}

func equalOptionCells(a, b *optionCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	ao, bo := *ga.Value(), *gb.Value()
	if ao.Some != bo.Some {
		return false
	}
	if !ao.Some {
		return true
	}
	return Equal(ao.Value, bo.Value)
}

func equalTypedTupleCells(a, b *typedTupleCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	at, bt := *ga.Value(), *gb.Value()
	if at.Hash != bt.Hash || len(at.Fields) != len(bt.Fields) {
		return false
	}
	for i := range at.Fields {
		if !Equal(at.Fields[i], bt.Fields[i]) {
			return false
		}
	}
	return true
}

func equalTupleVariantCells(a, b *tupleVariantCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	at, bt := *ga.Value(), *gb.Value()
	if at.EnumHash != bt.EnumHash || at.Hash != bt.Hash || len(at.Fields) != len(bt.Fields) {
		return false
	}
	for i := range at.Fields {
		if !Equal(at.Fields[i], bt.Fields[i]) {
			return false
		}
	}
	return true
}

func equalTypedObjectCells(a, b *typedObjectCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	at, bt := *ga.Value(), *gb.Value()
	if at.Hash != bt.Hash {
		return false
	}
	return equalObjectsDirect(at.Fields, bt.Fields)
}

func equalVariantObjectCells(a, b *variantObjectCell) bool {
	ga, err := a.BorrowShared()
	if err != nil {
		return false
	}
	defer ga.Release()
	gb, err := b.BorrowShared()
	if err != nil {
		return false
	}
	defer gb.Release()
	at, bt := *ga.Value(), *gb.Value()
	if at.EnumHash != bt.EnumHash || at.Hash != bt.Hash {
		return false
	}
	return equalObjectsDirect(at.Fields, bt.Fields)
}

func equalObjectsDirect(a, b *Object) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		av, _ := a.Get(k)
		bv, ok := b.Get(k)
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// sameCellIdentity falls back to reference identity for the kinds that
// have no built-in structural equality.
func sameCellIdentity(a, b Value) bool {
	return a.data == b.data
}
