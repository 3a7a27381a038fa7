package mesh

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PlanToFeatureCollection exports the plan as GeoJSON in plan meters: one
// Polygon per room, and when a scene is given one LineString per emitted
// wall plus one per opening.
func PlanToFeatureCollection(plan *FloorPlan, scene *Scene) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i := range plan.Rooms {
		room := &plan.Rooms[i]
		if room.Width <= 0 || room.Length <= 0 {
			continue
		}
		f := geojson.NewFeature(room.Bound().ToPolygon())
		f.ID = room.ID
		f.Properties["layerType"] = "room"
		f.Properties["roomId"] = room.ID
		f.Properties["name"] = room.Label()
		f.Properties["roomType"] = string(room.Type)
		f.Properties["height"] = room.Height
		f.Properties["area"] = room.Area()
		f.Properties["openAir"] = room.OpenAir()
		fc.Append(f)
	}

	if scene == nil {
		return fc
	}

	for _, w := range scene.Walls {
		f := geojson.NewFeature(orb.LineString{w.Start.Orb(), w.End.Orb()})
		f.ID = w.Name
		f.Properties["layerType"] = "wall"
		f.Properties["key"] = w.Key
		f.Properties["roomId"] = w.RoomID
		f.Properties["side"] = string(w.Side)
		f.Properties["interior"] = w.Interior
		f.Properties["length"] = w.Length
		f.Properties["height"] = w.Height
		if w.AdjacentID != "" {
			f.Properties["adjacentId"] = w.AdjacentID
		}
		fc.Append(f)

		if w.Opening == nil || w.Length <= 0 {
			continue
		}
		o := w.Opening
		a := Lerp(w.Start, w.End, o.Start/w.Length)
		b := Lerp(w.Start, w.End, o.End/w.Length)
		of := geojson.NewFeature(orb.LineString{a.Orb(), b.Orb()})
		of.ID = w.Name + "_" + string(o.Kind)
		of.Properties["layerType"] = string(o.Kind)
		of.Properties["wall"] = w.Name
		of.Properties["roomId"] = o.RoomID
		of.Properties["width"] = o.Width()
		of.Properties["bottom"] = o.Bottom
		of.Properties["top"] = o.Top
		if o.Style != "" {
			of.Properties["style"] = string(o.Style)
		}
		fc.Append(of)
	}
	return fc
}

// FeaturesByLayer returns the features whose layerType property matches
func FeaturesByLayer(fc *geojson.FeatureCollection, layer string) []*geojson.Feature {
	var out []*geojson.Feature
	for _, f := range fc.Features {
		if f.Properties.MustString("layerType", "") == layer {
			out = append(out, f)
		}
	}
	return out
}
