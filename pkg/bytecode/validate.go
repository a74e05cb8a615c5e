package bytecode

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Validate checks structural invariants of u that a corrupted or
// hand-assembled Unit could violate: every jump target and function
// offset must land inside the instruction array, every pool slot an
// instruction references must exist, and every opcode must be
// recognized. It collects every violation it finds rather than
// stopping at the first, using go-multierror the way the teacher's
// loader-style validation would report multiple bad records at once.
func (u *Unit) Validate() error {
	var errs *multierror.Error

	for ip, inst := range u.Instructions {
		if !inst.Op.Valid() {
			errs = multierror.Append(errs, fmt.Errorf("ip %d: unknown opcode %d", ip, inst.Op))
			continue
		}
		if err := validateInstructionOperands(u, ip, inst); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	for h, fn := range u.Functions {
		if fn.Kind == UnitFnOffset {
			if fn.IP < 0 || fn.IP >= len(u.Instructions) {
				errs = multierror.Append(errs, fmt.Errorf("function %s: offset %d out of bounds", h, fn.IP))
			}
		}
	}

	return errs.ErrorOrNil()
}

func validateInstructionOperands(u *Unit, ip int, inst Instruction) error {
	switch inst.Op {
	case OpString, OpObjectSlotIndexGet, OpObjectSlotIndexGetAt:
		if _, err := u.LookupString(inst.Slot); err != nil {
			return fmt.Errorf("ip %d: %w", ip, err)
		}
	case OpBytes:
		if _, err := u.LookupBytes(inst.Slot); err != nil {
			return fmt.Errorf("ip %d: %w", ip, err)
		}
	case OpObject, OpTypedObject, OpVariantObject, OpMatchObject:
		if _, err := u.LookupObjectKeys(inst.Slot); err != nil {
			return fmt.Errorf("ip %d: %w", ip, err)
		}
	case OpJump, OpJumpIf, OpJumpIfNot, OpJumpIfBranch, OpPopAndJumpIfNot:
		if inst.Target < 0 || inst.Target >= len(u.Instructions) {
			return fmt.Errorf("ip %d: jump target %d out of bounds", ip, inst.Target)
		}
	}
	return nil
}
