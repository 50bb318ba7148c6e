package repository

// RepositoryContext identifica al tenant y al actor de cada operación de persistencia.
// Toda lectura y escritura se filtra por OrganizationID; un registro de otra organización
// se comporta como inexistente.
type RepositoryContext struct {
	OrganizationID string
	ActorID        string
}
