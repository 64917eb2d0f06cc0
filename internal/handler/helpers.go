package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"medicalmuneras/internal/apierror"
	"medicalmuneras/internal/middleware"
	"medicalmuneras/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0 work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Report field errors under their JSON names, the ones the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewKind("validation", "JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindOptional is bindAndValidate for endpoints whose body may be omitted.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return validateStruct(c, req)
	}
	return bindAndValidate(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.NewKind("validation", err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps service errors to their HTTP status. Anything else is
// handed to the error middleware as a 500.
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		_ = c.Error(err)
		return
	}
	switch se.Kind {
	case service.KindValidation:
		c.JSON(http.StatusBadRequest, apierror.NewValidationMsg(se.Msg, se.Fields))
	case service.KindForbidden:
		c.JSON(http.StatusForbidden, apierror.NewKind(se.Kind.String(), se.Msg))
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, apierror.NewKind(se.Kind.String(), se.Msg))
	case service.KindConflict:
		c.JSON(http.StatusConflict, apierror.NewKind(se.Kind.String(), se.Msg))
	default:
		_ = c.Error(err)
	}
}

// currentUser returns the authenticated user id, uuid.Nil when unauthenticated.
func currentUser(c *gin.Context) uuid.UUID {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.UUID()
	}
	return uuid.Nil
}
