// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package component

// The types below declare the fixed shape of every fingerprint component.
// Field order is column order. The fp tag carries the wire/column name and an
// optional kind override; the validate tag carries storage constraints.
//
// Every field is nullable: pointers for scalars, nil slices/maps for JSON.

// HTTPHeader is derived server-side from the transport, never from the client.
type HTTPHeader struct {
	HeaderCount    *int     `fp:"header_count"`
	HTTPVersion    *string  `fp:"http_version" validate:"max=20"`
	TLSProtocol    *string  `fp:"tls_protocol" validate:"max=50"`
	TLSCipherSuite *string  `fp:"tls_cipher_suite" validate:"max=100"`
	HeadersPresent []string `fp:"headers_present"`
	UnusualHeaders []string `fp:"unusual_headers"`
	Referer        *string  `fp:"referer" validate:"max=100"`
}

type Behavioral struct {
	TypingSpeed         *float64       `fp:"typing_speed"`
	MouseEntropy        *float64       `fp:"mouse_entropy"`
	KeystrokeDynamics   map[string]any `fp:"keystroke_dynamics"`
	ScrollBehavior      map[string]any `fp:"scroll_behavior"`
	URLChanges          []any          `fp:"url_changes"`
	TimeOfVisitPatterns []any          `fp:"time_of_visit_patterns"`
}

type Display struct {
	ScreenHeight     *int     `fp:"screen_height"`
	ScreenWidth      *int     `fp:"screen_width"`
	ColorDepth       *int     `fp:"color_depth"`
	DevicePixelRatio *float64 `fp:"device_pixel_ratio"`
	ColorGamut       *string  `fp:"color_gamut" validate:"max=20"`
}

type Storage struct {
	CookiesEnabled   *bool          `fp:"cookies_enabled"`
	StorageEstimate  map[string]any `fp:"storage_estimate"`
	ServiceWorkers   []any          `fp:"service_workers"`
	IndexedDBs       []any          `fp:"indexeddb_dbs"`
	CacheStorageKeys []any          `fp:"cache_storage_keys"`
}

type CSSMediaFeature struct {
	PrefersDarkScheme *bool `fp:"prefers_dark_scheme"`
	FontSmoothing     *bool `fp:"font_smoothing"`
	ReducedMotion     *bool `fp:"reduced_motion"`
	ReducedData       *bool `fp:"reduced_data"`
	ForcedColors      *bool `fp:"forced_colors"`
}

// PermissionsStatus holds permission query states ("granted", "denied",
// "prompt"). Clients frequently leave these null.
type PermissionsStatus struct {
	Geolocation   *string `fp:"geolocation" validate:"max=20"`
	Notifications *string `fp:"notifications" validate:"max=20"`
	Camera        *string `fp:"camera" validate:"max=20"`
	Microphone    *string `fp:"microphone" validate:"max=20"`
	MIDI          *string `fp:"midi" validate:"max=20"`
}

type Graphics struct {
	WebGLRenderer   *string        `fp:"webgl_renderer"`
	WebGLVendor     *string        `fp:"webgl_vendor"`
	WebGLExtensions []any          `fp:"webgl_extensions"`
	WebGPUAdapter   map[string]any `fp:"webgpu_adapter"`
}

type Hardware struct {
	OS                 *string  `fp:"os" validate:"max=200"`
	CPUCores           *int     `fp:"cpu_cores"`
	DeviceMemory       *float64 `fp:"device_memory"`
	DeviceArchitecture *string  `fp:"device_architecture" validate:"max=50"`
}

// Browser has no server-side derivation for PrivateMode; it stays whatever
// the client sent, usually null.
type Browser struct {
	Vendor      *string `fp:"vendor" validate:"max=100"`
	ProductSub  *string `fp:"product_sub" validate:"max=100"`
	BuildID     *string `fp:"build_id" validate:"max=100"`
	PrivateMode *bool   `fp:"private_mode"`
}

type NetworkConnection struct {
	EffectiveType *string  `fp:"effective_type" validate:"max=20"`
	Downlink      *float64 `fp:"downlink"`
	RTT           *int     `fp:"rtt"`
}

type TimeZone struct {
	TimeZone       *string `fp:"time_zone" validate:"max=100"`
	TimezoneOffset *int    `fp:"timezone_offset"`
	Languages      []any   `fp:"languages"`
}

type Media struct {
	AudioCodecs  []any `fp:"audio_codecs"`
	VideoCodecs  []any `fp:"video_codecs"`
	MediaDevices []any `fp:"media_devices"`
}

type TouchPointer struct {
	MaxTouchPoints *int  `fp:"max_touch_points"`
	PointerFine    *bool `fp:"pointer_fine"`
	Standalone     *bool `fp:"standalone"`
}

type PerformanceTimings struct {
	Timings       map[string]any `fp:"timings"`
	Memory        map[string]any `fp:"memory"`
	NetworkTiming map[string]any `fp:"network_timing"`
	Framerate     *float64       `fp:"framerate"`
}

type IP struct {
	Address *string        `fp:"ip_address,ip" validate:"ip"`
	Details map[string]any `fp:"details"`
}

type Canvas struct {
	CanvasHash *string `fp:"canvas_hash" validate:"max=128"`
	WebGLHash  *string `fp:"webgl_hash" validate:"max=128"`
}

type Plugins struct {
	InstalledPlugins []any `fp:"installed_plugins"`
	MimeTypes        []any `fp:"mime_types"`
}

type EncryptedMediaCapabilities struct {
	CDMList []any `fp:"cdm_list"`
}

type Audio struct {
	AudioHash *string `fp:"audio_hash" validate:"max=128"`
}

type Fonts struct {
	InstalledFonts []any `fp:"installed_fonts"`
}
