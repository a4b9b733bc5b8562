// Package memory provides semantic memory for skillmesh.
//
// A DataStore keeps embedded records grouped in collections and answers
// nearest-neighbour queries. VolatileStore is the in-process
// implementation; the qdrant, sqlite and redis subpackages provide durable
// ones. SemanticTextMemory combines a DataStore with a model.Embedding and
// implements core.SemanticMemory, which is what functions see through
// core.Context.Memory.
package memory
