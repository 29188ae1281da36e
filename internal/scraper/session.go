package scraper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// Session 门户会话
// 生命周期：缺失 -> 登录获取 -> 持久化 -> 复用，过期后重新登录刷新
type Session struct {
	Cookies    []*proto.NetworkCookieParam `json:"cookies"`
	AcquiredAt time.Time                   `json:"acquiredAt"`
}

// sessionTTL 会话最长复用时间，超过后强制重新登录
const sessionTTL = 45 * time.Minute

// Valid 判断会话是否仍可复用
func (s *Session) Valid(now time.Time) bool {
	if s == nil || len(s.Cookies) == 0 {
		return false
	}
	return now.Sub(s.AcquiredAt) < sessionTTL
}

// SessionStore 会话的文件持久化
// 进程重启后可以续用未过期的登录态，减少对门户的登录频率
type SessionStore struct {
	path string
}

// NewSessionStore 创建会话存储
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{path: filepath.Join(dir, "avaris_session.json")}
}

// Load 读取持久化的会话；文件不存在返回 nil，不算错误
func (st *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// 损坏的会话文件当作没有会话处理
		return nil, nil
	}
	return &s, nil
}

// Save 持久化会话
func (st *SessionStore) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(st.path, data, 0600)
}

// Clear 删除持久化的会话
func (st *SessionStore) Clear() error {
	err := os.Remove(st.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
