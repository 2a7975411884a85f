// Package sniffer перехватывает сетевые ответы страницы и собирает JSON,
// похожий на данные о посещаемости.
package sniffer

import (
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"

	"uniTrack/internal/attendance"
	"uniTrack/internal/browser"
)

// Source - страница, на ответы которой можно подписаться.
type Source interface {
	OnResponse(handler func(browser.Response)) (unsubscribe func())
}

// Capture - записи из одного ответа.
type Capture struct {
	URL     string
	Records []attendance.RawRecord

	seq int
}

// Sniffer живёт одно окно взаимодействия: Attach перед отправкой формы входа, Detach в конце.
// Один Sniffer на одну сессию, между запросами не переиспользуется.
type Sniffer struct {
	log   *zap.Logger
	extra []string

	mu          sync.Mutex
	idle        *sync.Cond
	inflight    int
	closed      bool
	next        int
	captures    []Capture
	unsubscribe func()
}

// New создаёт перехватчик. endpoints добавляются к шаблонам URL как подстроки.
func New(log *zap.Logger, endpoints ...string) *Sniffer {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Sniffer{
		log:   log.Named("sniffer"),
		extra: endpoints,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

func (s *Sniffer) Attach(src Source) {
	unsubscribe := src.OnResponse(s.handle)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

// Detach отписывается и дожидается разбора уже принятых ответов.
// Повторный вызов безопасен.
func (s *Sniffer) Detach() {
	s.mu.Lock()
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	s.Sync()
}

// Sync ждёт, пока разберутся все уже принятые ответы.
func (s *Sniffer) Sync() {
	s.mu.Lock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// handle вызывается из цикла событий браузера. Тело читаем в отдельной горутине:
// Body() ходит в тот же цикл и заблокировал бы доставку следующих событий.
func (s *Sniffer) handle(resp browser.Response) {
	if resp.Status() != http.StatusOK {
		return
	}
	url := resp.URL()
	if !MatchesURL(url, s.extra...) {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	seq := s.next
	s.next++
	s.inflight++
	s.mu.Unlock()

	go func() {
		defer s.done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Debug("Паника при разборе ответа", zap.Any("panic", r))
			}
		}()

		body, err := resp.Body()
		if err != nil {
			s.log.Debug("Не удалось прочитать тело ответа", zap.Error(err))
			return
		}

		records, ok := ParsePayload(body)
		if !ok {
			return
		}

		s.mu.Lock()
		s.captures = append(s.captures, Capture{URL: url, Records: records, seq: seq})
		s.mu.Unlock()

		s.log.Info("Перехвачены данные посещаемости", zap.Int("records", len(records)))
	}()
}

func (s *Sniffer) done() {
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Sniffer) HasData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captures) > 0
}

// Records - все перехваченные записи в порядке поступления, без дедупликации.
func (s *Sniffer) Records() []attendance.RawRecord {
	var out []attendance.RawRecord
	for _, c := range s.Captures() {
		out = append(out, c.Records...)
	}
	return out
}

// Captures в порядке прихода ответов, а не окончания разбора.
func (s *Sniffer) Captures() []Capture {
	s.mu.Lock()
	out := make([]Capture, len(s.captures))
	copy(out, s.captures)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// BestMatch возвращает ответ с наибольшим числом записей.
// При равенстве выигрывает пришедший раньше.
func (s *Sniffer) BestMatch() (Capture, bool) {
	captures := s.Captures()

	var best Capture
	found := false
	for _, c := range captures {
		if !found || len(c.Records) > len(best.Records) {
			best = c
			found = true
		}
	}

	return best, found
}
