package model

// Business catalogs. Adding a new equipment category or diagnostic value is a
// data change here; nothing else branches on these values.

// Catalogo is an ordered set of allowed values for one field.
type Catalogo []string

// Contiene reports whether v is one of the catalog values (exact match).
func (c Catalogo) Contiene(v string) bool {
	for _, x := range c {
		if x == v {
			return true
		}
	}
	return false
}

var (
	MetodosPago = Catalogo{"Efectivo", "Tarjeta", "Transferencia"}

	Equipos = Catalogo{
		"Tensiometro digital",
		"Tensiometro analogico",
		"Tensiometro de muñeca",
		"Bascula digital",
		"Bascula analogica",
		"Glucometro",
		"Nebulizador",
		"Termometro",
		"Termohidrometro",
		"Oximetro",
		"Concentrado de Oxigeno",
		"TEMS",
		"Otro",
	}

	EstadosBrazalete = Catalogo{"OK", "Fuga", "Desgaste", "N/A"}

	EstadosPilas = Catalogo{"OK", "Cambio", "Recargable", "Carbon", "Adaptador OK", "Adaptador dañado", "N/A"}

	// EstadosChequeo applies to revision, mantenimiento, limpieza and calibracion.
	EstadosChequeo = Catalogo{"Ok", "Pendiente"}
)

// MaxNotasDiagnostico is the maximum length (in characters) of NotasDiagnostico.
const MaxNotasDiagnostico = 100
