package dedupe

// Components returns the connected components of the undirected graph
// over ids with at least two members. Members keep the order of ids.
// Edges naming unknown ids are ignored.
func Components(ids []string, edges [][2]string) [][]string {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	adj := make(map[string][]string)
	for _, e := range edges {
		if !known[e[0]] || !known[e[1]] {
			continue
		}
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}

	visited := make(map[string]bool)
	var out [][]string
	for _, id := range ids {
		if visited[id] {
			continue
		}
		var comp []string
		dfs(id, adj, visited, &comp)
		if len(comp) >= 2 {
			out = append(out, ordered(ids, comp))
		}
	}
	return out
}

func dfs(u string, adj map[string][]string, visited map[string]bool, comp *[]string) {
	visited[u] = true
	*comp = append(*comp, u)
	for _, v := range adj[u] {
		if !visited[v] {
			dfs(v, adj, visited, comp)
		}
	}
}

func ordered(ids, comp []string) []string {
	in := make(map[string]bool, len(comp))
	for _, id := range comp {
		in[id] = true
	}
	out := make([]string, 0, len(comp))
	for _, id := range ids {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}
