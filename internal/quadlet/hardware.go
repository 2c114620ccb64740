package quadlet

// TranscodingBackend is the tagged variant for hardware-accelerated
// transcoding.
type TranscodingBackend string

const (
	TranscodingDisabled TranscodingBackend = "disabled"
	TranscodingNVENC    TranscodingBackend = "nvenc"
	TranscodingQSV      TranscodingBackend = "qsv"
	TranscodingVAAPI    TranscodingBackend = "vaapi"
	TranscodingVAAPIWSL TranscodingBackend = "vaapi-wsl"
	TranscodingRKMPP    TranscodingBackend = "rkmpp"
)

// MLBackend is the tagged variant for hardware-accelerated ML inference.
type MLBackend string

const (
	MLDisabled      MLBackend = "disabled"
	MLCUDA          MLBackend = "cuda"
	MLOpenVINO      MLBackend = "openvino"
	MLOpenVINOWSL   MLBackend = "openvino-wsl"
	MLArmNN         MLBackend = "armnn"
	MLRKNN          MLBackend = "rknn"
	MLROCm          MLBackend = "rocm"
)

// HardwareEffect is the pure output of mapping a backend variant to
// container-level directives: a function of the variant alone, never of
// any other config field.
type HardwareEffect struct {
	Devices      []Device
	Volumes      []Volume
	Environment  map[string]string
	SecurityOpts []string
	Groups       []string
	ImageSuffix  string
}

func merge(effects ...HardwareEffect) HardwareEffect {
	out := HardwareEffect{Environment: map[string]string{}}
	for _, e := range effects {
		out.Devices = append(out.Devices, e.Devices...)
		out.Volumes = append(out.Volumes, e.Volumes...)
		for k, v := range e.Environment {
			out.Environment[k] = v
		}
		out.SecurityOpts = append(out.SecurityOpts, e.SecurityOpts...)
		out.Groups = append(out.Groups, e.Groups...)
		if e.ImageSuffix != "" {
			out.ImageSuffix = e.ImageSuffix
		}
	}
	return out
}

var dri = Device{Host: "/dev/dri", Container: "/dev/dri"}

// TranscodingHardware maps a transcoding backend to its device/env/volume
// effect.
func TranscodingHardware(b TranscodingBackend) HardwareEffect {
	switch b {
	case TranscodingNVENC:
		// The engine performs the GPU reservation; no device mounts here.
		return HardwareEffect{}
	case TranscodingQSV:
		return HardwareEffect{Devices: []Device{dri}}
	case TranscodingVAAPI:
		return HardwareEffect{Devices: []Device{dri}}
	case TranscodingVAAPIWSL:
		return HardwareEffect{
			Devices: []Device{dri},
			Volumes: []Volume{{Source: "/usr/lib/wsl/drivers", Target: "/usr/lib/wsl/drivers", Options: []string{"ro"}}},
			Environment: map[string]string{
				"LIBVA_DRIVER_NAME": "d3d12",
			},
		}
	case TranscodingRKMPP:
		return HardwareEffect{
			Devices: []Device{
				dri,
				{Host: "/dev/rga", Container: "/dev/rga"},
				{Host: "/dev/mpp_service", Container: "/dev/mpp_service"},
			},
			SecurityOpts: []string{"systempaths=unconfined", "apparmor=unconfined"},
		}
	default:
		return HardwareEffect{}
	}
}

// MLHardware maps an ML backend to its device/env/image-suffix effect.
func MLHardware(b MLBackend) HardwareEffect {
	switch b {
	case MLCUDA:
		return HardwareEffect{ImageSuffix: "-cuda"}
	case MLOpenVINO:
		return HardwareEffect{Devices: []Device{dri}, ImageSuffix: "-openvino"}
	case MLOpenVINOWSL:
		return HardwareEffect{
			Devices:     []Device{dri},
			Volumes:     []Volume{{Source: "/usr/lib/wsl/drivers", Target: "/usr/lib/wsl/drivers", Options: []string{"ro"}}},
			Environment: map[string]string{"LIBVA_DRIVER_NAME": "d3d12"},
			ImageSuffix: "-openvino",
		}
	case MLArmNN:
		return HardwareEffect{ImageSuffix: "-armnn"}
	case MLRKNN:
		return HardwareEffect{
			Devices:     []Device{dri, {Host: "/dev/rga", Container: "/dev/rga"}, {Host: "/dev/mpp_service", Container: "/dev/mpp_service"}},
			ImageSuffix: "-rknn",
		}
	case MLROCm:
		return HardwareEffect{
			Devices:     []Device{{Host: "/dev/kfd", Container: "/dev/kfd"}, dri},
			Groups:      []string{"video"},
			ImageSuffix: "-cuda",
		}
	default:
		return HardwareEffect{}
	}
}

// CombinedHardware merges the transcoding and ML effects for a container
// that exercises both (e.g. immich-server applies transcoding directly and
// immich-machine-learning applies the ML effect).
func CombinedHardware(transcoding TranscodingBackend, ml MLBackend) HardwareEffect {
	return merge(TranscodingHardware(transcoding), MLHardware(ml))
}
