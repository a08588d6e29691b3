package driver

var IndexQueries = []string{
	"CREATE INDEX ON :Lead(id);",
	"CREATE INDEX ON :Lead(user_id);",
	"CREATE INDEX ON :Campaign(id);",
	"CREATE INDEX ON :Domain(name);",
	"CREATE INDEX ON :Phone(number);",
}

const (
	MergeCampaignQuery = `
		MERGE (c:Campaign {id: $id})
		SET c.user_id = $user_id,
			c.name = $name,
			c.business_type = $business_type,
			c.location = $location,
			c.created_at = $created_at
		RETURN c.id AS id
	`

	// MergeLeadQuery replaces the lead's outgoing edges so a changed
	// website or phone moves it to the new Domain/Phone node.
	MergeLeadQuery = `
		MERGE (l:Lead {id: $id})
		SET l.user_id = $user_id,
			l.name = $name,
			l.address = $address,
			l.city = $city,
			l.website = $website,
			l.phone = $phone,
			l.score = $score,
			l.stage = $stage
		WITH l
		OPTIONAL MATCH (l)-[old:IN_CAMPAIGN|HAS_DOMAIN|HAS_PHONE]->()
		DELETE old
		RETURN l.id AS id
	`

	LinkCampaignQuery = `
		MATCH (l:Lead {id: $lead_id})
		MATCH (c:Campaign {id: $campaign_id})
		MERGE (l)-[:IN_CAMPAIGN]->(c)
		RETURN l.id AS id
	`

	LinkDomainQuery = `
		MATCH (l:Lead {id: $lead_id})
		MERGE (d:Domain {name: $domain})
		MERGE (l)-[:HAS_DOMAIN]->(d)
		RETURN d.name AS name
	`

	LinkPhoneQuery = `
		MATCH (l:Lead {id: $lead_id})
		MERGE (p:Phone {number: $number})
		MERGE (l)-[:HAS_PHONE]->(p)
		RETURN p.number AS number
	`

	DeleteLeadQuery = `
		MATCH (l:Lead {id: $id, user_id: $user_id})
		DETACH DELETE l
	`

	DeleteCampaignQuery = `
		MATCH (c:Campaign {id: $id, user_id: $user_id})
		OPTIONAL MATCH (l:Lead)-[:IN_CAMPAIGN]->(c)
		DETACH DELETE l, c
	`

	// Domain and Phone nodes left without leads.
	PruneOrphansQuery = `
		MATCH (n)
		WHERE (n:Domain OR n:Phone) AND NOT (n)<--()
		DELETE n
	`

	DuplicateDomainsQuery = `
		MATCH (l:Lead {user_id: $user_id})-[:HAS_DOMAIN]->(d:Domain)
		WITH d, collect(l.id) AS ids
		WHERE size(ids) > 1
		RETURN d.name AS key, ids
		ORDER BY key
	`

	DuplicatePhonesQuery = `
		MATCH (l:Lead {user_id: $user_id})-[:HAS_PHONE]->(p:Phone)
		WITH p, collect(l.id) AS ids
		WHERE size(ids) > 1
		RETURN p.number AS key, ids
		ORDER BY key
	`
)
