package config

// YAMLBuild is the on-disk build description.
type YAMLBuild struct {
	Inputs YAMLInputs `yaml:"inputs"`
	Output string     `yaml:"output"`
	Image  YAMLImage  `yaml:"image"`

	RamdiskCompression string        `yaml:"ramdisk_compression"`
	Stamp              []YAMLReplace `yaml:"stamp"`
}

type YAMLInputs struct {
	Stub       string `yaml:"stub"`
	Firmware   string `yaml:"firmware"`
	DeviceTree string `yaml:"device_tree"`
	Ramdisk    string `yaml:"ramdisk"`
}

// YAMLImage mirrors the mkbootimg arguments. Addresses are strings so hex works.
type YAMLImage struct {
	Base          string `yaml:"base"`
	KernelOffset  string `yaml:"kernel_offset"`
	RamdiskOffset string `yaml:"ramdisk_offset"`
	SecondOffset  string `yaml:"second_offset"`
	TagsOffset    string `yaml:"tags_offset"`
	DtbOffset     string `yaml:"dtb_offset"`

	PageSize      *uint32 `yaml:"page_size"`
	HeaderVersion *uint32 `yaml:"header_version"`

	OSVersion    string `yaml:"os_version"`
	OSPatchLevel string `yaml:"os_patch_level"`

	Board   string `yaml:"board"`
	Cmdline string `yaml:"cmdline"`
}

type YAMLReplace struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}
