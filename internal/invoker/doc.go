// Package invoker вызывает внешние функции.
//
// Ошибки делятся на два класса:
//   - *FunctionError — функция явно сообщила об ошибке (X-Amz-Function-Error)
//   - ErrInvocation — всё остальное: сеть, таймаут, ответ провайдера >= 400
//
// Этот класс определяет маршрут job: только FunctionError может
// стать BPMN-ошибкой.
package invoker
