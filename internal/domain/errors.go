package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Los casos de uso envuelven estos sentinels con fmt.Errorf("%w: ...") y el borde HTTP usa errors.Is.
var (
	// ErrNotFound el registro o grupo de versiones referenciado no existe (o no es la versión vigente).
	ErrNotFound = errors.New("recurso no encontrado")
	// ErrUnauthorized no hay actor en el contexto.
	ErrUnauthorized = errors.New("no autorizado")
	// ErrForbidden el actor no puede mutar el registro (pertenece a otro usuario).
	ErrForbidden = errors.New("acceso denegado")
	// ErrInvalidInput datos de entrada incompletos o fuera de rango.
	ErrInvalidInput = errors.New("entrada inválida")
	// ErrValidation transición no permitida sobre el estado actual (grupo archivado, versión reemplazada...).
	ErrValidation = errors.New("operación no válida para el estado actual")
	// ErrPersistence el almacén rechazó o no confirmó una escritura.
	ErrPersistence = errors.New("error de persistencia")
	// ErrInsufficientStock el lote no tiene cantidad suficiente para el consumo.
	ErrInsufficientStock = errors.New("stock insuficiente")
)

// IsAuthorization indica si err pertenece a la familia de errores de autorización.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}
