// Package schema holds the input rules of the storefront screens. Rules are
// `validate` struct tags checked with go-playground/validator; Check turns
// failures into the messages shown to shoppers, keyed by JSON field name.
package schema

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Messages shown for each rule.
const (
	MsgEmail           = "Por favor, insira um e-mail válido."
	MsgPasswordMin8    = "A senha deve ter no mínimo 8 caracteres."
	MsgPasswordUpper   = "A senha deve conter pelo menos uma letra maiúscula."
	MsgPasswordLower   = "A senha deve conter pelo menos uma letra minúscula."
	MsgPasswordDigit   = "A senha deve conter pelo menos um número."
	MsgPasswordSpecial = "A senha deve conter pelo menos um caractere especial (ex: !@#$)."
	MsgNameMin3        = "O nome deve ter pelo menos 3 caracteres."
	MsgPasswordMin6    = "A senha deve ter pelo menos 6 caracteres."
	MsgRole            = "Selecione um perfil válido."
	MsgPasswordsDiffer = "As senhas não coincidem"
	MsgProductName     = "Nome muito curto"
	MsgDescription     = "Descrição deve ter pelo menos 3 caracteres"
	MsgStock           = "O estoque não pode ser negativo."
	MsgPrice           = "O preço não pode ser negativo."
	MsgStatus          = "Status inválido."
	MsgRequired        = "Este campo é obrigatório"
	MsgInvalid         = "Valor inválido."
	MsgInvalidLogin    = "Email ou senha inválidos"
)

// Password character classes.
var (
	ReUpper   = regexp.MustCompile(`[A-Z]`)
	ReLower   = regexp.MustCompile(`[a-z]`)
	ReDigit   = regexp.MustCompile(`[0-9]`)
	ReSpecial = regexp.MustCompile(`[\W_]`)
)

// SignIn is the sign-in payload.
type SignIn struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8,hasupper,haslower,hasdigit,hasspecial"`
}

// SignUp is the registration payload.
type SignUp struct {
	Name            string `json:"name" validate:"min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"min=6"`
	Role            string `json:"role" validate:"oneof=seller customer"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// messages maps "<json field>.<tag>" and then "<tag>" to a message.
var messages = map[string]string{
	"email.required":          MsgEmail,
	"email.email":             MsgEmail,
	"password.min":            MsgPasswordMin8,
	"password.hasupper":       MsgPasswordUpper,
	"password.haslower":       MsgPasswordLower,
	"password.hasdigit":       MsgPasswordDigit,
	"password.hasspecial":     MsgPasswordSpecial,
	"name.min":                MsgNameMin3,
	"role.oneof":              MsgRole,
	"confirmPassword.eqfield": MsgPasswordsDiffer,
	"description.min":         MsgDescription,
	"stockQuantity.gte":       MsgStock,
	"price.gte":               MsgPrice,
	"status.oneof":            MsgStatus,
	"required":                MsgRequired,
}

// SignUpMessages overrides the password rule, which is shorter on sign-up.
var SignUpMessages = map[string]string{
	"password.min": MsgPasswordMin6,
}

// ProductMessages overrides the name rule wording used on product screens.
var ProductMessages = map[string]string{
	"name.min": MsgProductName,
}

// Messenger is implemented by payloads whose rules need their own wording.
type Messenger interface {
	ValidationMessages() map[string]string
}

// ValidationMessages implements Messenger.
func (SignUp) ValidationMessages() map[string]string { return SignUpMessages }

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the storefront rules
// registered: hasupper, haslower, hasdigit and hasspecial.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "hasupper", regexRule(ReUpper))
		mustRegister(v, "haslower", regexRule(ReLower))
		mustRegister(v, "hasdigit", regexRule(ReDigit))
		mustRegister(v, "hasspecial", regexRule(ReSpecial))
		validate = v
	})
	return validate
}

// RegisterType validates values of the types of samples as the value fn
// returns, e.g. a decimal type as float64. Call it during init.
func RegisterType(fn validator.CustomTypeFunc, samples ...any) {
	Validator().RegisterCustomTypeFunc(fn, samples...)
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func regexRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Check validates v and returns the first message per field keyed by the
// field's JSON name (nested fields are dotted, e.g. "images.0.imageUrl").
// It returns nil when v is valid.
func Check(v any) map[string]string {
	var overrides map[string]string
	if m, ok := v.(Messenger); ok {
		overrides = m.ValidationMessages()
	}

	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = Message(field, fe.Tag(), overrides)
	}
	return out
}

// Message resolves the text for a failed rule.
func Message(field, tag string, overrides map[string]string) string {
	leaf := field
	if i := strings.LastIndex(field, "."); i >= 0 {
		leaf = field[i+1:]
	}
	for _, table := range []map[string]string{overrides, messages} {
		if msg, ok := table[leaf+"."+tag]; ok {
			return msg
		}
	}
	if msg, ok := messages[tag]; ok {
		return msg
	}
	return MsgInvalid
}

// fieldPath drops the struct name and turns "images[0].imageUrl" into
// "images.0.imageUrl".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	ns = strings.ReplaceAll(ns, "[", ".")
	return strings.ReplaceAll(ns, "]", "")
}
