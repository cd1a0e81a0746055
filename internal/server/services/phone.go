package services

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/teamterraforge/tgmsauth/internal/common"
)

// NormalizePhone parses raw in the context of region and returns it in E.164
// form. Blank input yields "".
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: phone: %v", common.ErrInvalidArgument, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: phone: not a valid number", common.ErrInvalidArgument)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
