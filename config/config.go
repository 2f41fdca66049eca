/*
Package config loads the try-on configuration from defaults, an optional YAML
file and TRYON_ prefixed environment variables.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ErrInvalid is returned when a configuration value is out of range
var ErrInvalid = errors.New("invalid configuration")

// Config is the main application configuration
type Config struct {
	Capture  CaptureConfig  `mapstructure:"capture"`
	Detector DetectorConfig `mapstructure:"detector"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Scene    SceneConfig    `mapstructure:"scene"`
	Server   ServerConfig   `mapstructure:"server"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Log      LogConfig      `mapstructure:"log"`
}

// CaptureConfig selects the video source
type CaptureConfig struct {
	// Device is the camera index or device path
	Device string `mapstructure:"device"`
	// File replays a video file instead of a camera when set
	File   string `mapstructure:"file"`
	Loop   bool   `mapstructure:"loop"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// DetectorConfig selects the face mesh backend and model files
type DetectorConfig struct {
	// Backend is either "opencv" or "npu"
	Backend  string `mapstructure:"backend"`
	Model    string `mapstructure:"model"`
	Cascade  string `mapstructure:"cascade"`
	Topology string `mapstructure:"topology"`
	// Platform is the Rockchip SoC used by the npu backend
	Platform string `mapstructure:"platform"`
	PoolSize int    `mapstructure:"pool_size"`
	MaxFaces int    `mapstructure:"max_faces"`
}

// BridgeConfig sets the keypoint tracking and coordinate mapping
type BridgeConfig struct {
	Index    int           `mapstructure:"index"`
	Interval time.Duration `mapstructure:"interval"`
	// Divisor is the pixels per scene unit, 0 derives it from the frame
	// height
	Divisor float64 `mapstructure:"divisor"`
	Depth   float64 `mapstructure:"depth"`
}

// SceneConfig sets the jewelry asset and overlay options
type SceneConfig struct {
	Asset      string  `mapstructure:"asset"`
	AssetScale float64 `mapstructure:"asset_scale"`
	Mirror     bool    `mapstructure:"mirror"`
	Marker     bool    `mapstructure:"marker"`
	Debug      bool    `mapstructure:"debug"`
	Title      string  `mapstructure:"title"`
	Tagline    string  `mapstructure:"tagline"`
}

// ServerConfig sets the HTTP stream server, Window opens a local OpenCV
// window in its place
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	FPS         int    `mapstructure:"fps"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
	Window      bool   `mapstructure:"window"`
}

// MQTTConfig sets the optional position publisher
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	QoS      byte   `mapstructure:"qos"`
}

// LogConfig sets the log level and optional rotated log file
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads the configuration from defaults, the YAML file at configPath if
// it exists and environment variables, then validates it
func Load(configPath string) (*Config, error) {

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)

			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			log.Infof("Config loaded from %s", configPath)
		}
	}

	v.SetEnvPrefix("TRYON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {

	v.SetDefault("capture.device", "0")
	v.SetDefault("capture.file", "")
	v.SetDefault("capture.loop", true)
	v.SetDefault("capture.width", 640)
	v.SetDefault("capture.height", 480)

	v.SetDefault("detector.backend", "opencv")
	v.SetDefault("detector.model", "models/face_mesh.onnx")
	v.SetDefault("detector.cascade", "models/haarcascade_frontalface_default.xml")
	v.SetDefault("detector.topology", "mediapipe-facemesh-468")
	v.SetDefault("detector.platform", "rk3588")
	v.SetDefault("detector.pool_size", 3)
	v.SetDefault("detector.max_faces", 1)

	v.SetDefault("bridge.index", 234)
	v.SetDefault("bridge.interval", time.Second/60)
	v.SetDefault("bridge.divisor", 0.0)
	v.SetDefault("bridge.depth", -0.5)

	v.SetDefault("scene.asset", "assets/earring.glb")
	v.SetDefault("scene.asset_scale", 0.5)
	v.SetDefault("scene.mirror", true)
	v.SetDefault("scene.marker", true)
	v.SetDefault("scene.debug", false)
	v.SetDefault("scene.title", "Alankarikā")
	v.SetDefault("scene.tagline", "Virtual jewelry try-on")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.fps", 30)
	v.SetDefault("server.jpeg_quality", 80)
	v.SetDefault("server.window", false)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "tryon")
	v.SetDefault("mqtt.topic", "tryon/position")
	v.SetDefault("mqtt.qos", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
}

// Validate checks value ranges that would otherwise fail deep inside the
// pipeline.  The keypoint index is checked against the detector topology
// when the detector is created.
func (c *Config) Validate() error {

	var errs []error

	invalid := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...))
	}

	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		invalid("capture resolution %dx%d", c.Capture.Width, c.Capture.Height)
	}

	switch c.Detector.Backend {
	case "opencv", "npu":
	default:
		invalid("detector backend %q, expected opencv or npu", c.Detector.Backend)
	}

	if c.Detector.PoolSize < 1 {
		invalid("detector pool size %d", c.Detector.PoolSize)
	}

	if c.Bridge.Index < 0 {
		invalid("keypoint index %d", c.Bridge.Index)
	}

	if c.Bridge.Interval <= 0 {
		invalid("bridge interval %v", c.Bridge.Interval)
	}

	if c.Bridge.Divisor < 0 {
		invalid("scale divisor %v", c.Bridge.Divisor)
	}

	if c.Scene.AssetScale <= 0 {
		invalid("asset scale %v", c.Scene.AssetScale)
	}

	if c.Server.FPS < 1 || c.Server.FPS > 120 {
		invalid("server fps %d", c.Server.FPS)
	}

	if c.Server.JPEGQuality < 1 || c.Server.JPEGQuality > 100 {
		invalid("jpeg quality %d", c.Server.JPEGQuality)
	}

	if c.MQTT.Enabled && c.MQTT.Topic == "" {
		invalid("mqtt topic is empty")
	}

	if c.MQTT.QoS > 2 {
		invalid("mqtt qos %d", c.MQTT.QoS)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		invalid("log level %q", c.Log.Level)
	}

	return errors.Join(errs...)
}
