package events

type Category string

const (
	CategoryCulto          Category = "Culto"
	CategoryReuniao        Category = "Reunião"
	CategoryEstudo         Category = "Estudo"
	CategoryEnsaio         Category = "Ensaio"
	CategoryEventoEspecial Category = "Evento Especial"
	CategoryOutro          Category = "Outro"
)

var categoryColors = map[Category]string{
	CategoryCulto:          "blue",
	CategoryReuniao:        "magenta",
	CategoryEstudo:         "orange",
	CategoryEnsaio:         "teal",
	CategoryEventoEspecial: "green",
	CategoryOutro:          "gray",
}

// Categories lists the accepted categories in display order.
func Categories() []Category {
	return []Category{
		CategoryCulto,
		CategoryReuniao,
		CategoryEstudo,
		CategoryEnsaio,
		CategoryEventoEspecial,
		CategoryOutro,
	}
}

// ColorFor returns the display color of a category. ok is false for
// categories outside the fixed set.
func ColorFor(c Category) (color string, ok bool) {
	color, ok = categoryColors[c]
	return color, ok
}

func (c Category) Valid() bool {
	_, ok := categoryColors[c]
	return ok
}
