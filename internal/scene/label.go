package scene

import "github.com/northwalk/floormap/internal/render"

func renderLabel(id, text string) render.Label {
	return render.Label{ID: id, Text: text}
}
