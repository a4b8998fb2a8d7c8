package safemat

import "fmt"

// Validate checks that a Mat is non-nil, valid, non-empty and has
// positive dimensions before an operation is allowed to touch it.
func Validate(m *Mat, operation string) error {
	if m == nil {
		return fmt.Errorf("safemat: nil mat for operation %q", operation)
	}
	if !m.IsValid() {
		return fmt.Errorf("safemat: invalid mat for operation %q", operation)
	}
	if m.Empty() {
		return fmt.Errorf("safemat: empty mat for operation %q", operation)
	}
	if m.Rows() <= 0 || m.Cols() <= 0 {
		return fmt.Errorf("safemat: non-positive dimensions %dx%d for operation %q", m.Cols(), m.Rows(), operation)
	}
	return nil
}
