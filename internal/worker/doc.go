// Package worker обрабатывает активированные job workflow-движка.
//
// # Обзор
//
// Worker получает job из очереди jobs.<type>, JobHandler вычисляет
// параметры вызова, вызывает функцию и отправляет ровно одну
// финализирующую команду: complete, fail или throw_error.
//
// # Ключевые компоненты
//
// ## JobHandler
//
//	h := worker.NewJobHandler(worker.HandlerConfig{
//	    Invoker:     inv,
//	    Client:      mq.NewCommandPublisher(publisher),
//	    Environment: envProvider,
//	    Journal:     journalRepo,
//	    Logger:      logger,
//	})
//
// ## Worker
//
// Consumer очереди с ограниченным параллелизмом:
//
//	w := worker.New(worker.Config{
//	    Conn:        mqConn,
//	    Processor:   h,
//	    JobType:     "lambda",
//	    Concurrency: 5,
//	})
//
// # Обработка job
//
//  1. Overlay: окружение < переменные процесса < custom headers,
//     плюс jobKey, processInstanceKey, variablesJson, variablesJsonEscaped
//  2. functionName (обязательно), шаблоны ${...} раскрываются
//  3. resultName (по умолчанию functionName)
//  4. functionErrorCode (опционально)
//  5. payload: body строкой — шаблон, body структурой — JSON,
//     без body — JSON всего overlay
//  6. Вызов функции
//  7. Классификация: SUCCESS, DECLARED_ERROR, UNEXPECTED_FAILURE
//  8. SUCCESS: {statusCode, body} → <resultName>StatusCode,
//     <resultName>JsonString, <resultName>
//
// # Команды
//
//   - SUCCESS и корректный ответ → complete
//   - DECLARED_ERROR и задан functionErrorCode → throw_error
//   - всё остальное → fail с retries-1
//
// Повторные попытки планирует workflow-движок: воркер только
// уменьшает счётчик retries.
package worker
