package memory

import "fmt"

// These mirror constraint violations a database would raise. The use cases
// validate first, so seeing one in a test means a use case let bad state
// through.

func errMissingRow(table, id string) error {
	return fmt.Errorf("memory: %s %s does not exist", table, id)
}

func errCheckViolation(constraint string) error {
	return fmt.Errorf("memory: check constraint %s violated", constraint)
}
