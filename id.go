package enroll

import "github.com/xraph/enroll/id"

// ID is the primary identifier type for all Enroll entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
