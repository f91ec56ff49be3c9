package driver

const (
	UpsertEntryQuery = `
		MERGE (n:KnowledgeEntry {id: $id})
		SET n.title = $title,
			n.content = $content,
			n.category = $category,
			n.service_type = $service_type,
			n.department = $department,
			n.updated_date = $updated_date,
			n.embedding = $embedding
		RETURN n.id AS id
	`

	FulltextSearchQuery = `
		CALL db.index.fulltext.queryNodes('entry_text', $query) YIELD node, score
		WHERE $category = '' OR node.category = $category
		RETURN node.id AS id, node.title AS title, node.content AS content,
			node.category AS category, node.service_type AS service_type,
			node.department AS department, score
		ORDER BY score DESC, id ASC
		LIMIT $limit
	`

	VectorSearchQuery = `
		CALL db.index.vector.queryNodes('entry_embedding', $limit, $embedding) YIELD node, score
		WHERE $category = '' OR node.category = $category
		RETURN node.id AS id, node.title AS title, node.content AS content,
			node.category AS category, node.service_type AS service_type,
			node.department AS department, score
		ORDER BY score DESC, id ASC
	`

	CountByCategoryQuery = `
		MATCH (n:KnowledgeEntry)
		RETURN n.category AS category, count(n) AS count
	`

	PingQuery = `RETURN 1 AS ok`
)
