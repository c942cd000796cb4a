package version

import (
	"sync"
	"time"
)

// Clock представляет гибридные часы устройства: физическое время,
// которое никогда не идет назад и не повторяется.
// Используется для CreatedAt/LastAttemptAt мутаций, чтобы FIFO порядок
// не зависел от перевода системных часов.
type Clock struct {
	last time.Time        // последнее выданное значение
	now  func() time.Time // источник физического времени
	mu   sync.Mutex       // мьютекс для потокобезопасности
}

// NewClock creates a clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockWithSource creates a clock backed by the given time source.
// Используется для тестирования.
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now возвращает следующее значение часов.
// Каждое значение строго больше предыдущего: если физическое время
// не продвинулось, добавляется одна наносекунда.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	wall := c.now().UTC()
	if !wall.After(c.last) {
		wall = c.last.Add(time.Nanosecond)
	}
	c.last = wall

	return wall
}

// Observe продвигает часы за удаленный timestamp (правило Лампорта:
// max(local, remote) + 1) и возвращает новое значение.
// Используется при получении данных от сервера.
func (c *Clock) Observe(remote time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	remote = remote.UTC()
	if remote.After(c.last) {
		c.last = remote
	}

	wall := c.now().UTC()
	if !wall.After(c.last) {
		wall = c.last.Add(time.Nanosecond)
	}
	c.last = wall

	return wall
}

// Last возвращает последнее выданное значение без его изменения.
func (c *Clock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}
