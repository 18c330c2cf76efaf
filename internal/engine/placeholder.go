package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	placeholderOpen  = "${"
	placeholderClose = '}'
)

// celReserved — идентификаторы, которые нельзя объявить как переменные CEL.
var celReserved = map[string]struct{}{
	"as": {}, "break": {}, "const": {}, "continue": {}, "else": {},
	"false": {}, "for": {}, "function": {}, "if": {}, "import": {},
	"in": {}, "let": {}, "loop": {}, "package": {}, "namespace": {},
	"null": {}, "return": {}, "true": {}, "var": {}, "void": {}, "while": {},
}

var structValueType = reflect.TypeOf(&structpb.Value{})

// PlaceholderProcessor раскрывает шаблоны вида ${expression} по Overlay.
//
// Выражение сначала ищется в overlay как точный ключ, иначе вычисляется
// как CEL-выражение, где ключи overlay доступны как переменные:
//
//	${functionPrefix}-booking
//	${order.id}
//	${size(items)}
//
// Выражение из букв, цифр, _ и - (например, first-name) считается именем
// ключа и в CEL не передаётся. Неразрешённое выражение — всегда ошибка.
type PlaceholderProcessor struct{}

// NewPlaceholderProcessor создаёт PlaceholderProcessor.
func NewPlaceholderProcessor() *PlaceholderProcessor {
	return &PlaceholderProcessor{}
}

// HasPlaceholder возвращает true, если строка содержит ${.
func HasPlaceholder(tmpl string) bool {
	return strings.Contains(tmpl, placeholderOpen)
}

// Resolve раскрывает все placeholder'ы шаблона.
// Текст вне placeholder'ов сохраняется без изменений.
func (p *PlaceholderProcessor) Resolve(tmpl string, o *Overlay) (string, error) {
	if !HasPlaceholder(tmpl) {
		return tmpl, nil
	}

	var (
		buf strings.Builder
		env *celEnv
	)
	rest := tmpl
	for {
		start := strings.Index(rest, placeholderOpen)
		if start < 0 {
			buf.WriteString(rest)
			break
		}

		end := closingBrace(rest, start+len(placeholderOpen))
		if end < 0 {
			// незакрытый ${ — обычный текст
			buf.WriteString(rest)
			break
		}

		buf.WriteString(rest[:start])
		expr := strings.TrimSpace(rest[start+len(placeholderOpen) : end])

		text, err := p.evaluate(expr, o, &env)
		if err != nil {
			return "", err
		}
		buf.WriteString(text)

		rest = rest[end+1:]
	}

	return buf.String(), nil
}

// evaluate вычисляет одно выражение и возвращает его текст.
func (p *PlaceholderProcessor) evaluate(expr string, o *Overlay, env **celEnv) (string, error) {
	if expr == "" {
		return "", fmt.Errorf("%w: empty expression", ErrUnresolvedPlaceholder)
	}

	if val, ok := o.Get(expr); ok {
		return Text(val)
	}
	if _, exists := o.values[expr]; exists || isKeyLike(expr) {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, expr)
	}

	if *env == nil {
		e, err := newCELEnv(o)
		if err != nil {
			return "", err
		}
		*env = e
	}

	out, err := (*env).eval(expr)
	if err != nil {
		return "", err
	}
	if _, isNull := out.(types.Null); isNull {
		return "", fmt.Errorf("%w: %s evaluated to null", ErrUnresolvedPlaceholder, expr)
	}
	return celText(out)
}

// closingBrace ищет закрывающую } с учётом вложенных скобок и строковых литералов.
func closingBrace(s string, from int) int {
	depth := 0
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == placeholderClose:
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// celEnv — CEL-окружение для одного overlay.
type celEnv struct {
	env        *cel.Env
	activation map[string]any
}

// newCELEnv объявляет ключи overlay, похожие на идентификаторы, как dyn-переменные.
func newCELEnv(o *Overlay) (*celEnv, error) {
	opts := make([]cel.EnvOption, 0, o.Len())
	activation := make(map[string]any, o.Len())
	for _, key := range o.Keys() {
		val, ok := o.Get(key)
		if !ok || !isIdentifier(key) {
			continue
		}
		if _, reserved := celReserved[key]; reserved {
			continue
		}
		opts = append(opts, cel.Variable(key, cel.DynType))
		activation[key] = celValue(val)
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create environment: %v", ErrPlaceholderEval, err)
	}
	return &celEnv{env: env, activation: activation}, nil
}

// celValue заменяет json.Number на int64 или float64 (в том числе
// внутри map и slice): CEL не знает json.Number.
func celValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = celValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = celValue(item)
		}
		return out
	default:
		return v
	}
}

// eval компилирует и вычисляет выражение.
func (e *celEnv) eval(expr string) (ref.Val, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvedPlaceholder, expr, issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPlaceholderEval, expr, err)
	}

	out, _, err := prg.Eval(e.activation)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvedPlaceholder, expr, err)
	}
	return out, nil
}

// celText возвращает текстовое представление результата CEL.
func celText(val ref.Val) (string, error) {
	switch v := val.(type) {
	case types.String:
		return string(v), nil
	case types.Bool:
		return strconv.FormatBool(bool(v)), nil
	case types.Int:
		return strconv.FormatInt(int64(v), 10), nil
	case types.Uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case types.Double:
		return formatFloat(float64(v)), nil
	}

	native, err := val.ConvertToNative(structValueType)
	if err != nil {
		return Text(val.Value())
	}
	pb, ok := native.(*structpb.Value)
	if !ok {
		return Text(val.Value())
	}
	return Text(pb.AsInterface())
}

// isIdentifier проверяет, что строка — идентификатор CEL ([A-Za-z_][A-Za-z0-9_]*).
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// isKeyLike проверяет, что выражение похоже на имя ключа
// ([A-Za-z_][A-Za-z0-9_-]*), например first-name. Такие выражения
// не вычисляются как CEL: отсутствие ключа — ошибка, а не вычитание.
func isKeyLike(s string) bool {
	if s == "" || s[0] == '-' || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c == '-', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
