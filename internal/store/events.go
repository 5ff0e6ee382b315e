package store

import (
	"github.com/banci/banci/pkg/logger"
	"github.com/banci/banci/pkg/rule"
)

// イベント種別
const (
	EventProposalsReady  = "proposals_ready"
	EventScheduleUpdated = "schedule.updated"
)

// Event 订阅者收到的事件
type Event struct {
	Type            string          `json:"type"`
	ScheduleVersion int64           `json:"schedule_version,omitempty"`
	ChangeSetID     string          `json:"change_set_id,omitempty"`
	ChangeSet       *rule.ChangeSet `json:"change_set,omitempty"`
}

// ProposalsReady 调整提案生成完毕事件
func ProposalsReady(cs *rule.ChangeSet) Event {
	return Event{Type: EventProposalsReady, ChangeSet: cs}
}

// ScheduleUpdated 排班已提交事件
func ScheduleUpdated(version int64, changeSetID string) Event {
	return Event{Type: EventScheduleUpdated, ScheduleVersion: version, ChangeSetID: changeSetID}
}

const subscriberBuffer = 16

// Subscribe 注册订阅者
// 返されたチャネルは cancel の呼び出しで閉じられる。
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// PublishProposalsReady 广播提案就绪事件
func (s *Store) PublishProposalsReady(cs *rule.ChangeSet) {
	s.publish(ProposalsReady(cs))
}

// publish 向全部订阅者广播
// 送信は決してブロックしない。詰まった購読者へのイベントは黙って捨てる。
func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			logger.Debug().
				Str("event", ev.Type).
				Msg("購読者キューが満杯のためイベントを破棄")
		}
	}
}
