package geometry

import "image"

// CardAspect is the portrait width:height ratio of a standard 2.5x3.5in card
var CardAspect = Aspect{W: 5, H: 7}

type Aspect struct {
	W int
	H int
}

// Fit returns the largest rectangle of the given aspect ratio centered inside r
func (a Aspect) Fit(r image.Rectangle) image.Rectangle {
	if a.W <= 0 || a.H <= 0 || r.Empty() {
		return r
	}
	w, h := r.Dx(), r.Dy()
	// compare w/h against a.W/a.H without floating point
	if w*a.H > h*a.W {
		w = h * a.W / a.H
	} else {
		h = w * a.H / a.W
	}
	w, h = max(w, 1), max(h, 1)
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
