package persist

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
)

// DBID is the unique identifier for a database record
type DBID string

// GenerateID generates an application-wide unique DBID
func GenerateID() DBID {
	return DBID(ksuid.New().String())
}

func (d DBID) String() string {
	return string(d)
}

// AccountID is a hedera entity id of the form shard.realm.num
type AccountID string

func (a AccountID) String() string {
	return string(a)
}

// TokenID is the ledger-assigned id of an NFT collection
type TokenID string

func (t TokenID) String() string {
	return string(t)
}

// NFTIdentifiers identifies a single non-fungible unit within a collection
type NFTIdentifiers struct {
	TokenID      TokenID `json:"token_id" binding:"required"`
	SerialNumber int64   `json:"serial_number" binding:"required"`
}

func (n NFTIdentifiers) String() string {
	return fmt.Sprintf("%s#%d", n.TokenID, n.SerialNumber)
}

// CreationTime represents the time a record was created
type CreationTime time.Time

// CreationTimeFromTime returns a CreationTime from a time.Time
func CreationTimeFromTime(t time.Time) CreationTime {
	return CreationTime(t)
}

// Time returns the underlying time.Time
func (c CreationTime) Time() time.Time {
	return time.Time(c)
}

func (c CreationTime) MarshalJSON() ([]byte, error) {
	return time.Time(c).MarshalJSON()
}

func (c *CreationTime) UnmarshalJSON(b []byte) error {
	return (*time.Time)(c).UnmarshalJSON(b)
}

// Value implements the driver.Valuer interface
func (c CreationTime) Value() (driver.Value, error) {
	if time.Time(c).IsZero() {
		return time.Now(), nil
	}
	return time.Time(c), nil
}

// Scan implements the sql.Scanner interface
func (c *CreationTime) Scan(src interface{}) error {
	if src == nil {
		*c = CreationTime{}
		return nil
	}
	*c = CreationTime(src.(time.Time))
	return nil
}

// LastUpdatedTime represents the time a record was last updated
type LastUpdatedTime time.Time

// LastUpdatedTimeFromTime returns a LastUpdatedTime from a time.Time
func LastUpdatedTimeFromTime(t time.Time) LastUpdatedTime {
	return LastUpdatedTime(t)
}

// Time returns the underlying time.Time
func (l LastUpdatedTime) Time() time.Time {
	return time.Time(l)
}

func (l LastUpdatedTime) MarshalJSON() ([]byte, error) {
	return time.Time(l).MarshalJSON()
}

func (l *LastUpdatedTime) UnmarshalJSON(b []byte) error {
	return (*time.Time)(l).UnmarshalJSON(b)
}

// Value implements the driver.Valuer interface
func (l LastUpdatedTime) Value() (driver.Value, error) {
	return time.Now(), nil
}

// Scan implements the sql.Scanner interface
func (l *LastUpdatedTime) Scan(src interface{}) error {
	if src == nil {
		*l = LastUpdatedTime{}
		return nil
	}
	*l = LastUpdatedTime(src.(time.Time))
	return nil
}

// NullString represents a string that may be null in the database
type NullString string

func (n NullString) String() string {
	return string(n)
}

// Value implements the driver.Valuer interface
func (n NullString) Value() (driver.Value, error) {
	if n == "" {
		return "", nil
	}
	return string(n), nil
}

// Scan implements the sql.Scanner interface
func (n *NullString) Scan(value interface{}) error {
	if value == nil {
		*n = NullString("")
		return nil
	}
	switch v := value.(type) {
	case string:
		*n = NullString(v)
	case []byte:
		*n = NullString(v)
	default:
		return fmt.Errorf("cannot scan %T into NullString", value)
	}
	return nil
}
