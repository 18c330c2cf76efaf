package engine

import "errors"

// Ошибки раскрытия placeholder'ов.
var (
	// ErrUnresolvedPlaceholder — выражение не удалось разрешить по overlay
	// (ключ отсутствует, результат null, ошибка компиляции или вычисления).
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

	// ErrPlaceholderEval — внутренняя ошибка движка выражений.
	ErrPlaceholderEval = errors.New("placeholder evaluation failed")
)
