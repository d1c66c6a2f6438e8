package validate

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	accountIDRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	memoCodeRegex  = regexp.MustCompile(`^[a-z0-9]{5,15}$`)
	recordIDRegex  = regexp.MustCompile(`^[0-9A-Za-z]{27}$`)
	isoDateRegex   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)
)

// AccountIDValidator validates a hedera entity id of the form shard.realm.num
var AccountIDValidator validator.Func = func(fl validator.FieldLevel) bool {
	return accountIDRegex.MatchString(fl.Field().String())
}

// MemoCodeValidator validates the plaintext of a memo code: either a short
// one-time listing code or a record id, which settlement memos carry instead
var MemoCodeValidator validator.Func = func(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return memoCodeRegex.MatchString(s) || recordIDRegex.MatchString(s)
}

// ISODateValidator validates a millisecond-precision RFC3339 UTC timestamp
var ISODateValidator validator.Func = func(fl validator.FieldLevel) bool {
	return isoDateRegex.MatchString(fl.Field().String())
}

// RegisterCustomValidators adds all custom validators to the given validator
func RegisterCustomValidators(v *validator.Validate) {
	v.RegisterValidation("account_id", AccountIDValidator)
	v.RegisterValidation("memo_code", MemoCodeValidator)
	v.RegisterValidation("iso_date", ISODateValidator)
}
