package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/response"
)

// pathID parses a positive integer path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	return positiveID(c, name, c.Param(name))
}

// queryID parses a required positive integer query parameter, writing a 400 on failure.
func queryID(c *gin.Context, name string) (int64, bool) {
	return positiveID(c, name, c.Query(name))
}

func positiveID(c *gin.Context, name, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, invalidField(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func invalidField(name, message string) error {
	e := appErrors.Clone(appErrors.ErrValidation, "")
	e.Fields = map[string]string{name: message}
	return e
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
