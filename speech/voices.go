package speech

// Voice is one preset the local backend supports.
type Voice struct {
	Name     string
	Language string
	Gender   string
}

// DefaultVoice is used when the caller picks none.
const DefaultVoice = "zh-CN-YunjianNeural"

var voices = []Voice{
	{Name: "zh-CN-YunjianNeural", Language: "zh-CN", Gender: "male"},
	{Name: "zh-CN-YunxiNeural", Language: "zh-CN", Gender: "male"},
	{Name: "zh-CN-YunyangNeural", Language: "zh-CN", Gender: "male"},
	{Name: "zh-CN-XiaoxiaoNeural", Language: "zh-CN", Gender: "female"},
	{Name: "zh-CN-XiaoyiNeural", Language: "zh-CN", Gender: "female"},
	{Name: "en-US-GuyNeural", Language: "en-US", Gender: "male"},
	{Name: "en-US-ChristopherNeural", Language: "en-US", Gender: "male"},
	{Name: "en-US-JennyNeural", Language: "en-US", Gender: "female"},
	{Name: "en-US-AriaNeural", Language: "en-US", Gender: "female"},
	{Name: "en-GB-RyanNeural", Language: "en-GB", Gender: "male"},
	{Name: "en-GB-SoniaNeural", Language: "en-GB", Gender: "female"},
	{Name: "ja-JP-KeitaNeural", Language: "ja-JP", Gender: "male"},
	{Name: "ja-JP-NanamiNeural", Language: "ja-JP", Gender: "female"},
}

// Voices lists the known local voice presets.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// KnownVoice reports whether name is in the preset catalog. Unknown
// names are still passed through to the backend, which may support
// more voices than the catalog lists.
func KnownVoice(name string) bool {
	for _, v := range voices {
		if v.Name == name {
			return true
		}
	}
	return false
}
