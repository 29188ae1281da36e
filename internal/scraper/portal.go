package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"avaris/internal/model"
)

// 门户页面选择器
// 登录表单与导出入口的结构多年未变，变更时只需要改这里
const (
	selUsername    = "#login_name"
	selPassword    = "#login_password"
	selLoginSubmit = "button[type=submit]"
)

// PortalConfig 门户抓取配置
type PortalConfig struct {
	BaseURL     string
	Credentials Credentials
	// HeadlessURL 外部浏览器的 WebSocket 地址，为空则本地启动
	HeadlessURL string
	// PageTimeout 单个页面操作的超时，默认 30s
	PageTimeout time.Duration
}

func (c *PortalConfig) defaults() {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 30 * time.Second
	}
}

// Portal go-rod 驱动的 Avaris 门户抓取器
// 共享单一浏览器与登录态，不支持并发调用
type Portal struct {
	cfg     PortalConfig
	store   *SessionStore
	mu      sync.Mutex
	browser *rod.Browser
	session *Session
	now     func() time.Time
}

// NewPortal 创建门户抓取器
func NewPortal(cfg PortalConfig, store *SessionStore) *Portal {
	cfg.defaults()
	return &Portal{cfg: cfg, store: store, now: time.Now}
}

// ScrapeObject 抓取一个对象在给定日期范围内的原始导出文本
func (p *Portal) ScrapeObject(ctx context.Context, object string, rng DateRange) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSession(ctx); err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrScrapeFailed, object, err)
	}

	text, err := p.fetchExport(ctx, object, rng)
	if err != nil {
		// 会话可能已在门户侧失效，刷新一次再试
		log.Printf("scraper: export failed for %q, refreshing session: %v", object, err)
		p.session = nil
		if p.store != nil {
			_ = p.store.Clear()
		}
		if err := p.ensureSession(ctx); err != nil {
			return "", fmt.Errorf("%w: %s: %v", model.ErrScrapeFailed, object, err)
		}
		text, err = p.fetchExport(ctx, object, rng)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", model.ErrScrapeFailed, object, err)
		}
	}
	return text, nil
}

// Close 关闭浏览器
func (p *Portal) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		err := p.browser.Close()
		p.browser = nil
		return err
	}
	return nil
}

// ensureSession 保证存在可用会话：复用 -> 读持久化 -> 登录
func (p *Portal) ensureSession(ctx context.Context) error {
	if p.session.Valid(p.now()) {
		return nil
	}

	if p.store != nil {
		if s, err := p.store.Load(); err == nil && s.Valid(p.now()) {
			if err := p.applySession(s); err == nil {
				p.session = s
				return nil
			}
		}
	}

	s, err := p.login(ctx)
	if err != nil {
		return err
	}
	p.session = s
	if p.store != nil {
		if err := p.store.Save(s); err != nil {
			log.Printf("scraper: persist session: %v", err)
		}
	}
	return nil
}

// ensureBrowser 启动或连接浏览器
// 浏览器生命周期独立于单次抓取，ctx 只约束页面级操作
func (p *Portal) ensureBrowser() (*rod.Browser, error) {
	if p.browser != nil {
		return p.browser, nil
	}

	wsURL := p.cfg.HeadlessURL
	if wsURL == "" {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	p.browser = b
	return b, nil
}

// login 走登录表单获取新会话
func (p *Portal) login(ctx context.Context) (*Session, error) {
	b, err := p.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: p.cfg.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("open login page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx).Timeout(p.cfg.PageTimeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("load login page: %w", err)
	}

	userEl, err := page.Element(selUsername)
	if err != nil {
		return nil, fmt.Errorf("find username field: %w", err)
	}
	if err := userEl.Input(p.cfg.Credentials.Username); err != nil {
		return nil, err
	}
	passEl, err := page.Element(selPassword)
	if err != nil {
		return nil, fmt.Errorf("find password field: %w", err)
	}
	if err := passEl.Input(p.cfg.Credentials.Password); err != nil {
		return nil, err
	}
	submitEl, err := page.Element(selLoginSubmit)
	if err != nil {
		return nil, fmt.Errorf("find submit button: %w", err)
	}
	if err := submitEl.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("post-login load: %w", err)
	}

	cookies, err := page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}

	return &Session{Cookies: params, AcquiredAt: p.now()}, nil
}

// applySession 把持久化会话的 cookie 注入浏览器
func (p *Portal) applySession(s *Session) error {
	b, err := p.ensureBrowser()
	if err != nil {
		return err
	}
	return b.SetCookies(s.Cookies)
}

// fetchExport 打开导出页并抓取 CSV 文本
func (p *Portal) fetchExport(ctx context.Context, object string, rng DateRange) (string, error) {
	b, err := p.ensureBrowser()
	if err != nil {
		return "", err
	}

	exportURL := fmt.Sprintf("%s/export?%s", p.cfg.BaseURL, url.Values{
		"object": {object},
		"from":   {rng.From.Format("02.01.2006")},
		"to":     {rng.To.Format("02.01.2006")},
		"format": {"csv"},
	}.Encode())

	page, err := b.Page(proto.TargetCreateTarget{URL: exportURL})
	if err != nil {
		return "", fmt.Errorf("open export page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx).Timeout(p.cfg.PageTimeout)

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("load export page: %w", err)
	}

	// CSV 以纯文本渲染在 body 中
	el, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("read export body: %w", err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read export text: %w", err)
	}
	return text, nil
}
