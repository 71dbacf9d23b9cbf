package db

// SchemaSQL defines the podcast graph: episodes, their transcript segments,
// and the episode-to-episode edges used for neighbourhood expansion.
//
// segment.embedding is deliberately untyped. Imported archives contain vectors
// of the wrong length or with non-numeric entries, and those rows must still be
// readable as text. That also rules out an HNSW index on the field.
const SchemaSQL = `
    -- ==========================================================================
    -- EPISODE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS episode SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS episode_number ON episode TYPE int;
    DEFINE FIELD IF NOT EXISTS title ON episode TYPE string;
    DEFINE FIELD IF NOT EXISTS url ON episode TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS community ON episode TYPE option<int>;

    DEFINE INDEX IF NOT EXISTS episode_number_idx ON episode FIELDS episode_number UNIQUE;
    DEFINE INDEX IF NOT EXISTS episode_community ON episode FIELDS community;

    -- ==========================================================================
    -- SEGMENT TABLE (transcript chunks)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS segment SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS episode_number ON segment TYPE int;
    DEFINE FIELD IF NOT EXISTS chunk_index ON segment TYPE int;
    DEFINE FIELD IF NOT EXISTS text ON segment TYPE string;

    DEFINE INDEX IF NOT EXISTS segment_key ON segment FIELDS episode_number, chunk_index UNIQUE;

    -- ==========================================================================
    -- RELATIONS
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS has_segment TYPE RELATION IN episode OUT segment SCHEMAFULL;

    -- Written by the offline similarity job, one edge per direction.
    DEFINE TABLE IF NOT EXISTS similar_to TYPE RELATION IN episode OUT episode SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS score ON similar_to TYPE float DEFAULT 0.0;

    DEFINE TABLE IF NOT EXISTS references_episode TYPE RELATION IN episode OUT episode SCHEMAFULL;
`

// graphTables lists every table in deletion order (relations first).
var graphTables = []string{"has_segment", "similar_to", "references_episode", "segment", "episode"}
