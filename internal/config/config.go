package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Avaris   AvarisConfig   `toml:"avaris"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// AvarisConfig 门户抓取配置
type AvarisConfig struct {
	BaseURL  string   `toml:"base_url"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Objects  []string `toml:"objects"` // 扫描对象，处理顺序即列表顺序
	// HeadlessURL 外部浏览器的 WebSocket 地址，为空则本地启动
	HeadlessURL string `toml:"headless_url"`
}

// PipelineConfig 流水线业务配置
type PipelineConfig struct {
	KeepTag string `toml:"keep_tag"` // 保留标记，Avaris 中仅此标记为有效打卡
	// MatchThreshold 姓名对账的最大编辑距离
	MatchThreshold int `toml:"match_threshold"`
	// ApplyChanges 是否自动将安全模糊匹配改写为名册拼写
	ApplyChanges bool `toml:"apply_changes"`
	// ObjectTimeoutSecs 单对象抓取超时（秒）
	ObjectTimeoutSecs int `toml:"object_timeout_secs"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20764,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Avaris: AvarisConfig{
			BaseURL: "https://www.avaris.cz",
		},
		Pipeline: PipelineConfig{
			KeepTag:           "ST",
			MatchThreshold:    2,
			ApplyChanges:      false,
			ObjectTimeoutSecs: 120,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			applyEnvOverrides(config)
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	applyEnvOverrides(config)

	return config, info, nil
}

// applyEnvOverrides 环境变量覆盖（凭据不建议写进配置文件）
func applyEnvOverrides(config *AppConfig) {
	if v := os.Getenv("AVARIS_BASE_URL"); v != "" {
		config.Avaris.BaseURL = v
	}
	if v := os.Getenv("AVARIS_USERNAME"); v != "" {
		config.Avaris.Username = v
	}
	if v := os.Getenv("AVARIS_PASSWORD"); v != "" {
		config.Avaris.Password = v
	}
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "exports", "session"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	exeDir, _ := GetExeDir()
	if exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir, subdir, filename)
}
