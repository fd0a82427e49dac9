package preprocess

import "strings"

// Kind is the closed set of element kinds preprocessing and pagination care
// about. Everything else is KindOther and is only traversed.
type Kind int

const (
	KindOther Kind = iota
	KindHead
	KindStyle
	KindAnchor
	KindImg     // html image, addressed by src
	KindImage   // svg image, addressed by xlink:href
	KindSVG     // vector graphic wrapper
	KindDiv     // generic block
	KindPicture // picture group
)

var kindNames = map[string]Kind{
	"head":    KindHead,
	"style":   KindStyle,
	"a":       KindAnchor,
	"img":     KindImg,
	"image":   KindImage,
	"svg":     KindSVG,
	"div":     KindDiv,
	"picture": KindPicture,
}

// KindOf maps element local name to its kind.
func KindOf(name string) Kind {
	if k, ok := kindNames[name]; ok {
		return k
	}
	if k, ok := kindNames[strings.ToLower(name)]; ok {
		return k
	}
	return KindOther
}

// IsImage reports kinds which display images.
func (k Kind) IsImage() bool {
	return k == KindImg || k == KindImage
}

// IsImageWrapper reports container kinds which constrain displayed size of an
// image they wrap on their own.
func (k Kind) IsImageWrapper() bool {
	return k == KindSVG || k == KindDiv || k == KindPicture
}

var kindStrings = [...]string{
	KindOther:   "other",
	KindHead:    "head",
	KindStyle:   "style",
	KindAnchor:  "a",
	KindImg:     "img",
	KindImage:   "image",
	KindSVG:     "svg",
	KindDiv:     "div",
	KindPicture: "picture",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindStrings) {
		return kindStrings[KindOther]
	}
	return kindStrings[k]
}
