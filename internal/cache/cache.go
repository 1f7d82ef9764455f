// Package cache предоставляет кеш с фиксированным TTL для сводных отчётов.
// Реализации: ограниченный по размеру кеш в памяти процесса и Redis
// для развёртываний с несколькими экземплярами.
package cache

import "context"

// Cache — абстракция get/set. TTL фиксируется при создании реализации.
// Гонка двух параллельных промахов допустима: оба пересчитают и
// перезапишут эквивалентный результат.
type Cache interface {
	// Get возвращает значение и признак попадания.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
