package cypher

import "fmt"

// Result sizing applied to the template catalog.
const (
	defaultListLimit        = 20
	maxPrefixResults        = 20
	largePathwayThreshold   = 10
	multiSubstrateThreshold = 2
)

// detailedSchema describes the KEGG-derived lipid metabolism graph. It is
// embedded verbatim into generation prompts.
const detailedSchema = `[Node Labels & Properties]
- Gene: {id, name, species}
- Compound: {id, name, names, formula}
- Reaction: {id, name, definition, equation}
- Pathway: {id, title, species}
- EC: {id, name, sysname}
- Ortholog: {id, name, symbol}
- FunctionalUnit: {id, name}

[Relationships]
- (:Gene)-[:ENCODES]->(:EC)
- (:Gene)-[:BELONGS_TO]->(:Ortholog)
- (:Gene)-[:MEMBER_OF]->(:FunctionalUnit)
- (:Compound)-[:SUBSTRATE_OF]->(:Reaction)
- (:Reaction)-[:PRODUCES]->(:Compound)
- (:EC)-[:CATALYZES]->(:Reaction)
- (:Ortholog)-[:CATALYZES]->(:Reaction)
- (:Ortholog)-[:HAS_ENZYME_FUNCTION]->(:EC)
- (:Pathway)-[:CONTAINS]->(:Reaction)
- (:Pathway)-[:CONTAINS]->(:FunctionalUnit)`

// Template is a parameterized Cypher statement the model can select and fill.
type Template struct {
	ID          string
	Description string
	Cypher      string
}

// templates is the full catalog, ordered for stable prompt construction.
// Placeholders use the {TYPE_ID} convention and are filled by the model.
var templates = []Template{
	// Direct entity lookup.
	{"T001", "Find gene node", "MATCH (n:Gene {id: '{GENE_ID}'}) RETURN n"},
	{"T002", "Find pathway node", "MATCH (n:Pathway {id: '{PATHWAY_ID}'}) RETURN n"},
	{"T003", "Find compound node", "MATCH (n:Compound {id: '{COMPOUND_ID}'}) RETURN n"},
	{"T004", "Find enzyme node", "MATCH (n:EC {id: '{EC_ID}'}) RETURN n"},
	{"T005", "Find reaction node", "MATCH (n:Reaction {id: '{REACTION_ID}'}) RETURN n"},
	{"T006", "Get gene properties", "MATCH (n:Gene {id: '{GENE_ID}'}) RETURN properties(n)"},
	{"T007", "Get pathway properties", "MATCH (n:Pathway {id: '{PATHWAY_ID}'}) RETURN properties(n)"},
	{"T008", "Get compound properties", "MATCH (n:Compound {id: '{COMPOUND_ID}'}) RETURN properties(n)"},
	{"T009", "Get enzyme properties", "MATCH (n:EC {id: '{EC_ID}'}) RETURN properties(n)"},
	{"T010", "Get reaction properties", "MATCH (n:Reaction {id: '{REACTION_ID}'}) RETURN properties(n)"},

	// One-hop relationships.
	{"T011", "Find enzymes by Gene", "MATCH (g:Gene {id: '{GENE_ID}'})-[:ENCODES]->(e:EC) RETURN e"},
	{"T012", "Find Ortholog by Gene", "MATCH (g:Gene {id: '{GENE_ID}'})-[:BELONGS_TO]->(o:Ortholog) RETURN o"},
	{"T013", "Find Functional Units by Gene", "MATCH (g:Gene {id: '{GENE_ID}'})-[:MEMBER_OF]->(f:FunctionalUnit) RETURN f"},
	{"T014", "Reactions using Compound", "MATCH (c:Compound {id: '{COMPOUND_ID}'})-[:SUBSTRATE_OF]->(r:Reaction) RETURN r"},
	{"T015", "Reactions producing Compound", "MATCH (r:Reaction)-[:PRODUCES]->(c:Compound {id: '{COMPOUND_ID}'}) RETURN r"},
	{"T016", "Reactions by Enzyme", "MATCH (e:EC {id: '{EC_ID}'})-[:CATALYZES]->(r:Reaction) RETURN r"},
	{"T017", "Reactions by Ortholog", "MATCH (o:Ortholog {id: '{ORTHOLOG_ID}'})-[:CATALYZES]->(r:Reaction) RETURN r"},
	{"T018", "Enzymes of Ortholog", "MATCH (o:Ortholog {id: '{ORTHOLOG_ID}'})-[:HAS_ENZYME_FUNCTION]->(e:EC) RETURN e"},
	{"T019", "Genes encoding Enzyme", "MATCH (g:Gene)-[:ENCODES]->(e:EC {id: '{EC_ID}'}) RETURN g"},
	{"T020", "Genes of Ortholog", "MATCH (g:Gene)-[:BELONGS_TO]->(o:Ortholog {id: '{ORTHOLOG_ID}'}) RETURN g"},
	{"T021", "Substrates of Reaction", "MATCH (c:Compound)-[:SUBSTRATE_OF]->(r:Reaction {id: '{REACTION_ID}'}) RETURN c"},
	{"T022", "Products of Reaction", "MATCH (r:Reaction {id: '{REACTION_ID}'})-[:PRODUCES]->(c:Compound) RETURN c"},
	{"T023", "Enzymes of Reaction", "MATCH (e:EC)-[:CATALYZES]->(r:Reaction {id: '{REACTION_ID}'}) RETURN e"},
	{"T024", "Reactions in Pathway", "MATCH (p:Pathway {id: '{PATHWAY_ID}'})-[:CONTAINS]->(r:Reaction) RETURN r"},
	{"T025", "Functional Units in Pathway", "MATCH (p:Pathway {id: '{PATHWAY_ID}'})-[:CONTAINS]->(f:FunctionalUnit) RETURN f"},

	// Multi-hop relationships.
	{"T026", "Pathways containing Reaction", "MATCH (p:Pathway)-[:CONTAINS]->(r:Reaction {id: '{REACTION_ID}'}) RETURN p"},
	{"T027", "Reactions via Ortholog", "MATCH (g:Gene {id: '{GENE_ID}'})-[:BELONGS_TO]->(o:Ortholog)-[:CATALYZES]->(r:Reaction) RETURN r"},
	{"T028", "Reactions via Enzyme", "MATCH (g:Gene {id: '{GENE_ID}'})-[:ENCODES]->(e:EC)-[:CATALYZES]->(r:Reaction) RETURN r"},
	{"T029", "Compounds via Enzyme", "MATCH (g:Gene {id: '{GENE_ID}'})-[:ENCODES]->(e:EC)-[:CATALYZES]->(r:Reaction)-[:PRODUCES]->(c:Compound) RETURN DISTINCT c"},
	{"T030", "Next Step Compounds", "MATCH (c1:Compound {id: '{COMPOUND_ID}'})-[:SUBSTRATE_OF]->(r:Reaction)-[:PRODUCES]->(c2:Compound) RETURN c2"},
	{"T031", "Previous Step Compounds", "MATCH (c1:Compound)-[:SUBSTRATE_OF]->(r:Reaction)-[:PRODUCES]->(c2:Compound {id: '{COMPOUND_ID}'}) RETURN c1"},
	{"T032", "Downstream Reactions", "MATCH (r1:Reaction {id: '{REACTION_ID}'})-[:PRODUCES]->(c:Compound)-[:SUBSTRATE_OF]->(r2:Reaction) RETURN r2"},
	{"T033", "Compounds produced in Pathway", "MATCH (p:Pathway {id: '{PATHWAY_ID}'})-[:CONTAINS]->(r:Reaction)-[:PRODUCES]->(c:Compound) RETURN DISTINCT c"},
	{"T034", "Compounds consumed in Pathway", "MATCH (p:Pathway {id: '{PATHWAY_ID}'})-[:CONTAINS]->(r:Reaction), (c:Compound)-[:SUBSTRATE_OF]->(r) RETURN DISTINCT c"},
	{"T035", "Enzymes in Functional Unit", "MATCH (f:FunctionalUnit {id: '{FUNCTIONALUNIT_ID}'})<-[:MEMBER_OF]-(g:Gene)-[:ENCODES]->(e:EC) RETURN DISTINCT e UNION MATCH (f:FunctionalUnit {id: '{FUNCTIONALUNIT_ID}'})<-[:MEMBER_OF]-(g:Gene)-[:BELONGS_TO]->(o:Ortholog)-[:HAS_ENZYME_FUNCTION]->(e:EC) RETURN DISTINCT e"},

	// Stats and counts.
	{"T036", "Count enzymes of Gene", "MATCH (g:Gene {id: '{GENE_ID}'})-[r:ENCODES]->(e:EC) RETURN count(r)"},
	{"T037", "Count reactions in Pathway", "MATCH (p:Pathway {id: '{PATHWAY_ID}'})-[r:CONTAINS]->(rxn:Reaction) RETURN count(r)"},
	{"T038", "Count genes of Ortholog", "MATCH (g:Gene)-[r:BELONGS_TO]->(o:Ortholog {id: '{ORTHOLOG_ID}'}) RETURN count(r)"},
	{"T039", "Top Pathways by size", "MATCH (p:Pathway)-[r:CONTAINS]->(rxn:Reaction) RETURN p.id, count(r) AS cnt ORDER BY cnt DESC LIMIT 10"},
	{"T040", "Shared Reactions between two Pathways", "MATCH (p1:Pathway {id: '{PATHWAY_ID_1}'})-[:CONTAINS]->(r:Reaction)<-[:CONTAINS]-(p2:Pathway {id: '{PATHWAY_ID_2}'}) RETURN r"},
	{"T041", "Count all genes", "MATCH (n:Gene) RETURN count(n)"},
	{"T042", "Count all pathways", "MATCH (n:Pathway) RETURN count(n)"},
	{"T043", "Count all compounds", "MATCH (n:Compound) RETURN count(n)"},
	{"T044", "Count all enzymes", "MATCH (n:EC) RETURN count(n)"},
	{"T045", "Count all reactions", "MATCH (n:Reaction) RETURN count(n)"},

	// Global lists.
	{"T046", "List all genes", fmt.Sprintf("MATCH (n:Gene) RETURN n LIMIT %d", defaultListLimit)},
	{"T047", "List all pathways", fmt.Sprintf("MATCH (n:Pathway) RETURN n LIMIT %d", defaultListLimit)},
	{"T048", "List all compounds", fmt.Sprintf("MATCH (n:Compound) RETURN n LIMIT %d", defaultListLimit)},
	{"T049", "List all enzymes", fmt.Sprintf("MATCH (n:EC) RETURN n LIMIT %d", defaultListLimit)},
	{"T050", "List all reactions", fmt.Sprintf("MATCH (n:Reaction) RETURN n LIMIT %d", defaultListLimit)},
	{"T051", "List all orthologs", fmt.Sprintf("MATCH (n:Ortholog) RETURN n LIMIT %d", defaultListLimit)},

	// Negations and edge cases.
	{"T052", "Find reactions with NO products", "MATCH (r:Reaction) WHERE NOT (r)-[:PRODUCES]->() RETURN r"},
	{"T053", "Find reactions with NO substrates", "MATCH (r:Reaction) WHERE NOT ()-[:SUBSTRATE_OF]->(r) RETURN r"},
	{"T054", "Find orphan pathways (empty)", "MATCH (p:Pathway) WHERE NOT (p)-[:CONTAINS]->() RETURN p"},
	{"T055", "Find enzymes not catalyzing any reaction", "MATCH (e:EC) WHERE NOT (e)-[:CATALYZES]->() RETURN e"},

	// Gap fillers.
	{"T056", "Pathways involving Gene (via Enzyme)", "MATCH (g:Gene {id: '{GENE_ID}'})-[:ENCODES]->(e:EC)-[:CATALYZES]->(r:Reaction)<-[:CONTAINS]-(p:Pathway) RETURN DISTINCT p"},
	{"T057", "Pathways involving Gene (via Ortholog)", "MATCH (g:Gene {id: '{GENE_ID}'})-[:BELONGS_TO]->(o:Ortholog)-[:CATALYZES]->(r:Reaction)<-[:CONTAINS]-(p:Pathway) RETURN DISTINCT p"},
	{"T057b", "Compounds produced by Gene (via Ortholog)", "MATCH (g:Gene {id: '{GENE_ID}'})-[:BELONGS_TO]->(o:Ortholog)-[:CATALYZES]->(r:Reaction)-[:PRODUCES]->(c:Compound) RETURN DISTINCT c"},
	{"T058", "Compounds produced by Gene (via Enzyme)", "MATCH (g:Gene {id: '{GENE_ID}'})-[:ENCODES]->(e:EC)-[:CATALYZES]->(r:Reaction)-[:PRODUCES]->(c:Compound) RETURN DISTINCT c"},
	{"T059", "Genes producing Compound", "MATCH (g:Gene)-[:ENCODES]->(e:EC)-[:CATALYZES]->(r:Reaction)-[:PRODUCES]->(c:Compound {id: '{COMPOUND_ID}'}) RETURN DISTINCT g"},

	// Advanced filters.
	{"T060", "Pathways with more than N reactions", fmt.Sprintf("MATCH (p:Pathway)-[r:CONTAINS]->(rxn:Reaction) WITH p, count(r) as cnt WHERE cnt > %d RETURN p", largePathwayThreshold)},
	{"T061", "Genes starting with prefix", fmt.Sprintf("MATCH (n:Gene) WHERE n.id STARTS WITH '{PREFIX}' RETURN n LIMIT %d", maxPrefixResults)},
	{"T062", "Pathways starting with prefix", fmt.Sprintf("MATCH (n:Pathway) WHERE n.id STARTS WITH '{PREFIX}' RETURN n LIMIT %d", maxPrefixResults)},
	{"T063", "Compounds starting with prefix", fmt.Sprintf("MATCH (n:Compound) WHERE n.id STARTS WITH '{PREFIX}' RETURN n LIMIT %d", maxPrefixResults)},
	{"T064", "Enzymes starting with prefix", fmt.Sprintf("MATCH (n:EC) WHERE n.id STARTS WITH '{PREFIX}' RETURN n LIMIT %d", maxPrefixResults)},
	{"T065", "Reactions starting with prefix", fmt.Sprintf("MATCH (n:Reaction) WHERE n.id STARTS WITH '{PREFIX}' RETURN n LIMIT %d", maxPrefixResults)},
	{"T066", "Orthologs starting with prefix", fmt.Sprintf("MATCH (n:Ortholog) WHERE n.id STARTS WITH '{PREFIX}' RETURN n LIMIT %d", maxPrefixResults)},
	{"T067", "Functional Units starting with prefix", fmt.Sprintf("MATCH (n:FunctionalUnit) WHERE n.id STARTS WITH '{PREFIX}' RETURN n LIMIT %d", maxPrefixResults)},
	{"T068", "Reactions with more than 2 Substrates", fmt.Sprintf("MATCH (c:Compound)-[rel:SUBSTRATE_OF]->(r:Reaction) WITH r, count(rel) as input_cnt WHERE input_cnt > %d RETURN r", multiSubstrateThreshold)},
	{"T069", "Reactions with more than 2 Products", fmt.Sprintf("MATCH (r:Reaction)-[rel:PRODUCES]->(c:Compound) WITH r, count(rel) as output_cnt WHERE output_cnt > %d RETURN r", multiSubstrateThreshold)},

	// Pathfinding.
	{"T070", "Shortest path between two Compounds", "MATCH p=shortestPath((c1:Compound {id: '{COMPOUND_ID_1}'})-[*]-(c2:Compound {id: '{COMPOUND_ID_2}'})) RETURN p"},
	{"T071", "Shortest path Gene to Pathway", "MATCH p=shortestPath((g:Gene {id: '{GENE_ID}'})-[*]-(path:Pathway {id: '{PATHWAY_ID}'})) RETURN p"},
	{"T072", "Shortest path between two Reactions", "MATCH p=shortestPath((r1:Reaction {id: '{REACTION_ID_1}'})-[*]-(r2:Reaction {id: '{REACTION_ID_2}'})) RETURN p"},
	{"T073", "Shortest path between two Genes", "MATCH p=shortestPath((g1:Gene {id: '{GENE_ID_1}'})-[*]-(g2:Gene {id: '{GENE_ID_2}'})) RETURN p"},
	{"T074", "Shortest path between two Pathways", "MATCH p=shortestPath((p1:Pathway {id: '{PATHWAY_ID_1}'})-[*]-(p2:Pathway {id: '{PATHWAY_ID_2}'})) RETURN p"},
	{"T075", "Other genes encoding same enzyme (Siblings)", "MATCH (g1:Gene {id: '{GENE_ID}'})-[:ENCODES]->(e:EC)<-[:ENCODES]-(g2:Gene) WHERE g1 <> g2 RETURN g2"},
	{"T076", "Inter-pathway Metabolite Exchange", "MATCH (p1:Pathway {id: '{PATHWAY_ID}'})-[:CONTAINS]->(:Reaction)-[:PRODUCES]->(c:Compound)<-[:SUBSTRATE_OF]-(:Reaction)<-[:CONTAINS]-(p2:Pathway) WHERE p1 <> p2 RETURN DISTINCT c"},
}

// Templates returns the catalog in prompt order.
func Templates() []Template {
	return templates
}
