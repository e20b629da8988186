// Package enrollment содержит доменную модель зачисления EduLearn.
//
// Это ядро бизнес-логики сервиса зачислений. Пакет определяет:
//
//   - Сущности (Entities): Enrollment (агрегат), ProgressEntry
//   - Value Objects: Status, UnitType
//   - Интерфейсы репозиториев: Repository, ProgressRepository, Cache
//
// # Архитектурные принципы
//
// Пакет следует принципам Clean Architecture и DDD:
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - определяет интерфейсы, которые реализуются в infrastructure
//  3. Rich Domain Model - бизнес-логика инкапсулирована в сущностях
//
// # Агрегат
//
// Enrollment - корень агрегата. Он эксклюзивно владеет записями прогресса:
// любое изменение ProgressEntry проходит через зачисление, которое
// пересчитывает roll-up и следит за инвариантами:
//
//   - ProgressPercent == round2(completed/total*100) при total > 0, иначе 0
//   - CompletedLearningUnits <= TotalLearningUnits
//   - StatusCompleted наступает ровно один раз, когда завершены все единицы
//
// # Пример использования
//
// Обновление просмотра урока:
//
//	entry, err := enr.FindLessonProgress(lessonID)
//	if err != nil {
//	    return err
//	}
//	if err := entry.UpdateWatchProgress(currentTime, duration, true); err != nil {
//	    return err
//	}
//	result := enr.UpdateProgressEntry(entry)
//	if result.CourseCompleted {
//	    // курс завершён именно этим обновлением
//	}
//
// Регистрация попытки квиза:
//
//	entry, err := enr.FindQuizProgress(quizID)
//	if err != nil {
//	    return err
//	}
//	if err := entry.RegisterQuizAttempt(score, passed); err != nil {
//	    return err
//	}
//	enr.UpdateProgressEntry(entry)
package enrollment
