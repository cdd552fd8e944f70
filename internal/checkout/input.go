package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/angelmondragon/storefront-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/go-playground/validator/v10"
)

const defaultCountry = "India"

// Address is a shipping or billing destination as entered at checkout.
type Address struct {
	Name    string `json:"name" validate:"required,max=120"`
	Line    string `json:"line" validate:"required,max=255"`
	State   string `json:"state" validate:"required,max=80"`
	PinCode string `json:"pin_code" validate:"required,len=6,number"`
	Country string `json:"country" validate:"omitempty,max=80"`
}

// Customer identifies who placed the order.
type Customer struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"required,len=10,number"`
}

// Input is the checkout form. A nil Billing means billing matches shipping.
type Input struct {
	Customer Customer `json:"customer"`
	Shipping Address  `json:"shipping"`
	Billing  *Address `json:"billing,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// normalize trims every field, fills the default country and copies shipping into billing
// when none was given.
func (in Input) normalize() Input {
	out := Input{
		Customer: Customer{
			Email: strings.TrimSpace(in.Customer.Email),
			Phone: strings.TrimSpace(in.Customer.Phone),
		},
		Shipping: in.Shipping.normalize(),
	}
	if in.Billing != nil {
		billing := in.Billing.normalize()
		out.Billing = &billing
	} else {
		billing := out.Shipping
		out.Billing = &billing
	}
	return out
}

func (a Address) normalize() Address {
	out := Address{
		Name:    strings.TrimSpace(a.Name),
		Line:    strings.TrimSpace(a.Line),
		State:   strings.TrimSpace(a.State),
		PinCode: strings.TrimSpace(a.PinCode),
		Country: strings.TrimSpace(a.Country),
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	return out
}

func (a Address) model() models.Address {
	return models.Address{
		Name:    a.Name,
		Line:    a.Line,
		State:   a.State,
		PinCode: a.PinCode,
		Country: a.Country,
	}
}

// Validate checks a normalized input and reports failures per json field path.
func (in Input) Validate() error {
	if err := validate.Struct(in); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fieldErr := range errs {
		field := strings.TrimPrefix(fieldErr.Namespace(), "Input.")
		details[field] = validationMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be exactly %s digits", fe.Param())
	case "number":
		return "must contain digits only"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}
