package domain

import (
	"github.com/google/uuid"

	dErrors "finflow/pkg/domain-errors"
)

// Typed UUID wrappers for the entity identifiers the workflow coordinates.
// Distinct types make cross-entity mixups a compile error rather than a
// runtime surprise.
type (
	UserID        uuid.UUID
	InstitutionID uuid.UUID
	ProductID     uuid.UUID
	ApplicationID uuid.UUID
)

// NewUserID returns a fresh random user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewInstitutionID returns a fresh random institution identifier.
func NewInstitutionID() InstitutionID { return InstitutionID(uuid.New()) }

// NewProductID returns a fresh random product identifier.
func NewProductID() ProductID { return ProductID(uuid.New()) }

// NewApplicationID returns a fresh random application identifier.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id InstitutionID) String() string { return uuid.UUID(id).String() }
func (id ProductID) String() string     { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id InstitutionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id InstitutionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ProductID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *InstitutionID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = InstitutionID(u)
	return nil
}

func (id *ProductID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ProductID(u)
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ApplicationID(u)
	return nil
}

// parseUUID enforces the shared parsing invariant: IDs must be valid,
// non-nil UUIDs. Construct IDs through the Parse functions at trust
// boundaries; direct casting bypasses validation.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseInstitutionID constructs an InstitutionID from external input.
func ParseInstitutionID(s string) (InstitutionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return InstitutionID{}, err
	}
	return InstitutionID(u), nil
}

// ParseProductID constructs a ProductID from external input.
func ParseProductID(s string) (ProductID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProductID{}, err
	}
	return ProductID(u), nil
}

// ParseApplicationID constructs an ApplicationID from external input.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}
