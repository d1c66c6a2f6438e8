package market

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/crypt"
	"github.com/kawilabs/go-kawi/util"
)

var numericIDRegex = regexp.MustCompile(`^\d+$`)

var errInvalidID = errors.New("invalid id")

type generateCodeInput struct {
	ID   string `json:"id" binding:"required"`
	Date string `json:"date" binding:"required,iso_date"`
	MS   string `json:"ms" binding:"omitempty,memo_code"`
}

type generateCodeOutput struct {
	Code string `json:"code"`
}

// generateListingCode mints a one-time listing code: a short random token
// encrypted into the ciphertext the client must attach as its transfer memo.
// A caller-supplied ms overrides the random token, which lets settlement
// memos carry the offer id instead.
func generateListingCode(codec *crypt.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input generateCodeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		if !numericIDRegex.MatchString(input.ID) {
			util.ErrResponse(c, http.StatusBadRequest, errInvalidID)
			return
		}

		code := input.MS
		if code == "" {
			var err error
			code, err = crypt.GenerateCode()
			if err != nil {
				util.ErrResponse(c, http.StatusInternalServerError, err)
				return
			}
		}

		encrypted, err := codec.Encrypt(code)
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, generateCodeOutput{Code: encrypted})
	}
}
