package board

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Aggregate groups departures by grouping key, orders each group by
// effective time and keeps the first perPost of them. Posts are numbered
// from 1 in first-seen group order, then the pinned group is moved to the
// front and the others are ordered by name using the collation for lang.
func Aggregate(deps []PotentialDeparture, perPost int, pinned, lang string) []Post {
	if perPost <= 0 {
		perPost = DefaultDeparturesPerPost
	}
	var order []string
	groups := map[string][]PotentialDeparture{}
	for _, d := range deps {
		if _, ok := groups[d.GroupingKey]; !ok {
			order = append(order, d.GroupingKey)
		}
		groups[d.GroupingKey] = append(groups[d.GroupingKey], d)
	}

	posts := make([]Post, 0, len(order))
	nextID := 1
	for _, key := range order {
		g := groups[key]
		sort.SliceStable(g, func(i, j int) bool { return g[i].EffectiveTime < g[j].EffectiveTime })
		if len(g) > perPost {
			g = g[:perPost]
		}
		if len(g) == 0 {
			continue
		}
		post := Post{PostID: nextID, Name: key, Departures: make([]Departure, 0, len(g))}
		nextID++
		for _, d := range g {
			post.Departures = append(post.Departures, d.toDeparture())
		}
		posts = append(posts, post)
	}

	col := collate.New(languageTag(lang))
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i].Name, posts[j].Name
		if pinned != "" && (a == pinned) != (b == pinned) {
			return a == pinned
		}
		return col.CompareString(a, b) < 0
	})
	return posts
}

func languageTag(lang string) language.Tag {
	if lang == "" {
		return language.Und
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und
	}
	return tag
}
