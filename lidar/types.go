package lidar

// Point3D is a single range-sensor return.
// X is forward, Y is lateral (left), Z is up, all in meters. R is the
// unitless reflectivity reported by the sensor.
type Point3D struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	R float32 `json:"r"`
}

// Transform4x4 is a homogeneous rigid-body transform stored row-major.
// The bottom row is always [0, 0, 0, 1].
type Transform4x4 [4][4]float64

// Projection3x4 maps rectified camera coordinates to homogeneous pixel
// coordinates, stored row-major.
type Projection3x4 [3][4]float64

// Calibration holds the three parsed matrices of one calibration directory
type Calibration struct {
	CameraID       string        `json:"cameraId"`
	SensorToCamera Transform4x4  `json:"sensorToCamera"`
	CameraToCamera Transform4x4  `json:"cameraToCamera"`
	Rectify        Transform4x4  `json:"rectify"`
	Intrinsics     Projection3x4 `json:"intrinsics"`
}

// ProjectedPoint is a point that survived filtering and projection
type ProjectedPoint struct {
	U     float64 `json:"u"`
	V     float64 `json:"v"`
	Value float64 `json:"value"` // forward distance in meters
	Index int     `json:"index"` // position in the source cloud
}

// Frame pairs one photograph with the point cloud captured alongside it
type Frame struct {
	Index     int    `json:"index"`
	ImagePath string `json:"imagePath"`
	CloudPath string `json:"cloudPath"`
}

// FilterThresholds configures the point acceptance policy
type FilterThresholds struct {
	MaxForward      float64 `yaml:"maxForward" json:"maxForward"`
	MaxLateral      float64 `yaml:"maxLateral" json:"maxLateral"`
	MinHeight       float64 `yaml:"minHeight" json:"minHeight"`
	MinReflectivity float64 `yaml:"minReflectivity" json:"minReflectivity"`
}

// RenderConfig controls splatting and color mapping
type RenderConfig struct {
	DiscRadius int     `yaml:"discRadius" json:"discRadius"`
	Opacity    float64 `yaml:"opacity" json:"opacity"`       // weight of the scratch layer when blending
	ValueRange float64 `yaml:"valueRange" json:"valueRange"` // t = |(v - range) / range|
	Legend     bool    `yaml:"legend,omitempty" json:"legend,omitempty"`
}

// CalibrationFiles names the calibration text files inside a calibration directory
type CalibrationFiles struct {
	SensorToCamera string `yaml:"sensorToCamera" json:"sensorToCamera"`
	CameraToCamera string `yaml:"cameraToCamera" json:"cameraToCamera"`
}

// DatasetLayout describes where photographs and point clouds live under a data root
type DatasetLayout struct {
	ImageDir string `yaml:"imageDir" json:"imageDir"`
	ImageExt string `yaml:"imageExt" json:"imageExt"`
	CloudDir string `yaml:"cloudDir" json:"cloudDir"`
	CloudExt string `yaml:"cloudExt" json:"cloudExt"`
	DataDir  string `yaml:"dataDir" json:"dataDir"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	CameraID    string           `yaml:"cameraId" json:"cameraId"`
	Filter      FilterThresholds `yaml:"filter" json:"filter"`
	Render      RenderConfig     `yaml:"render" json:"render"`
	Calibration CalibrationFiles `yaml:"calibration" json:"calibration"`
	Dataset     DatasetLayout    `yaml:"dataset" json:"dataset"`
	Workers     int              `yaml:"workers,omitempty" json:"workers,omitempty"`
	MQTT        MQTTConfig       `yaml:"mqtt" json:"mqtt"`
}

// Default values used throughout the pipeline
const (
	DefaultCameraID        = "02"
	DefaultMaxForward      = 25.0
	DefaultMaxLateral      = 6.0
	DefaultMinHeight       = -1.4
	DefaultMinReflectivity = 0.01
	DefaultDiscRadius      = 3
	DefaultOpacity         = 0.6
	DefaultValueRange      = 20.0
)

// DefaultFilterThresholds returns the acceptance policy used for the dataset
func DefaultFilterThresholds() FilterThresholds {
	return FilterThresholds{
		MaxForward:      DefaultMaxForward,
		MaxLateral:      DefaultMaxLateral,
		MinHeight:       DefaultMinHeight,
		MinReflectivity: DefaultMinReflectivity,
	}
}

// DefaultRenderConfig returns the splat radius, opacity and value range of the reference output
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		DiscRadius: DefaultDiscRadius,
		Opacity:    DefaultOpacity,
		ValueRange: DefaultValueRange,
	}
}

// DefaultDatasetLayout returns the raw-sequence layout (image_02 + velodyne_points)
func DefaultDatasetLayout() DatasetLayout {
	return DatasetLayout{
		ImageDir: "image_02",
		ImageExt: ".png",
		CloudDir: "velodyne_points",
		CloudExt: ".bin",
		DataDir:  "data",
	}
}

// DefaultCalibrationFiles returns the calibration file names of a calibration directory
func DefaultCalibrationFiles() CalibrationFiles {
	return CalibrationFiles{
		SensorToCamera: "calib_velo_to_cam.txt",
		CameraToCamera: "calib_cam_to_cam.txt",
	}
}

// DefaultConfig returns a configuration with every field set to its default
func DefaultConfig() *Config {
	return &Config{
		CameraID:    DefaultCameraID,
		Filter:      DefaultFilterThresholds(),
		Render:      DefaultRenderConfig(),
		Calibration: DefaultCalibrationFiles(),
		Dataset:     DefaultDatasetLayout(),
		Workers:     1,
	}
}
