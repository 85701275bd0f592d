package filter

import (
	"reflect"
	"testing"

	"vodstream/searchgateway/internal/domain"
)

func testPolicy() *Policy {
	return Compile(Config{
		Version:               "test",
		CategoryFilterEnabled: true,
		ClassificationTerms:   []string{"伦理", "adult"},
		BlockedTerms:          []string{"赌博", "casino", "罪恶之渊"},
		WhitelistTitles:       []string{"罪恶之渊", "Casino Royale"},
		RestrictedProviders:   []string{"shady"},
	})
}

func TestApplyStageOrder(t *testing.T) {
	policy := testPolicy()

	cases := []struct {
		name  string
		item  domain.Item
		pass  bool
		stage Stage
	}{
		{
			name:  "clean item passes",
			item:  domain.Item{ID: "1", Title: "Drama Show", Category: "Drama", SourceKey: "alpha"},
			pass:  true,
			stage: StageNone,
		},
		{
			name:  "restricted provider vetoed even with whitelisted title",
			item:  domain.Item{ID: "2", Title: "罪恶之渊", Category: "Drama", SourceKey: "shady"},
			pass:  false,
			stage: StageProviderVeto,
		},
		{
			name:  "category veto on substring",
			item:  domain.Item{ID: "3", Title: "Ordinary", Category: "日本伦理片", SourceKey: "alpha"},
			pass:  false,
			stage: StageCategoryVeto,
		},
		{
			name:  "whitelist rescues blocked substring in title",
			item:  domain.Item{ID: "4", Title: "罪恶之渊", Category: "Drama", SourceKey: "alpha"},
			pass:  true,
			stage: StageWhitelist,
		},
		{
			name:  "whitelist is case and whitespace insensitive",
			item:  domain.Item{ID: "5", Title: "  casino   ROYALE ", Category: "Movie", SourceKey: "alpha"},
			pass:  true,
			stage: StageWhitelist,
		},
		{
			name:  "blocklist veto on title substring",
			item:  domain.Item{ID: "6", Title: "超级赌博之夜", Category: "Drama", SourceKey: "alpha"},
			pass:  false,
			stage: StageBlocklist,
		},
		{
			name:  "blocklist veto on category substring",
			item:  domain.Item{ID: "7", Title: "Harmless", Category: "Online Casino", SourceKey: "alpha"},
			pass:  false,
			stage: StageBlocklist,
		},
		{
			name:  "whitelist does not rescue category veto",
			item:  domain.Item{ID: "8", Title: "罪恶之渊", Category: "伦理", SourceKey: "alpha"},
			pass:  false,
			stage: StageCategoryVeto,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(tc.item, policy)
			if decision.Pass != tc.pass {
				t.Fatalf("pass = %v, want %v (stage %s rule %q)", decision.Pass, tc.pass, decision.Stage, decision.Rule)
			}
			if decision.Stage != tc.stage {
				t.Fatalf("stage = %s, want %s", decision.Stage, tc.stage)
			}
		})
	}
}

func TestCategoryVetoToggle(t *testing.T) {
	policy := Compile(Config{
		CategoryFilterEnabled: false,
		ClassificationTerms:   []string{"伦理"},
	})
	item := domain.Item{ID: "1", Title: "Ordinary", Category: "伦理", SourceKey: "alpha"}
	if decision := Decide(item, policy); !decision.Pass {
		t.Fatalf("classification veto should be inert when disabled, got stage %s", decision.Stage)
	}
}

func TestApplyIdempotent(t *testing.T) {
	policy := testPolicy()
	items := []domain.Item{
		{ID: "1", Title: "Drama Show", Category: "Drama", SourceKey: "alpha"},
		{ID: "2", Title: "赌博之城", Category: "Drama", SourceKey: "alpha"},
		{ID: "3", Title: "罪恶之渊", Category: "Drama", SourceKey: "beta"},
		{ID: "4", Title: "Something", Category: "adult video", SourceKey: "beta"},
	}

	once := Apply(items, policy)
	twice := Apply(once, policy)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Apply not idempotent: %v != %v", once, twice)
	}
	if len(once) != 2 {
		t.Fatalf("expected 2 survivors, got %d: %v", len(once), once)
	}
	if once[0].ID != "1" || once[1].ID != "3" {
		t.Fatalf("survivors out of order: %v", once)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	policy := testPolicy()
	items := []domain.Item{
		{ID: "1", Title: "赌博", SourceKey: "alpha"},
		{ID: "2", Title: "Fine", SourceKey: "alpha"},
	}
	snapshot := append([]domain.Item(nil), items...)
	Apply(items, policy)
	if !reflect.DeepEqual(items, snapshot) {
		t.Fatal("Apply mutated its input slice")
	}
}

func TestQueryBlocked(t *testing.T) {
	policy := testPolicy()

	if !QueryBlocked("来玩赌博游戏", policy) {
		t.Fatal("query containing blocked term should be blocked")
	}
	if QueryBlocked("harmless drama", policy) {
		t.Fatal("clean query should not be blocked")
	}
	if QueryBlocked("", policy) {
		t.Fatal("empty query is not a policy matter")
	}

	// The whitelisted title is also a blocklist term: by default the
	// query-level check fires before whitelist logic can apply.
	if !QueryBlocked("罪恶之渊", policy) {
		t.Fatal("query-level short-circuit should win over the title whitelist by default")
	}
}

func TestQueryWhitelistBypass(t *testing.T) {
	policy := Compile(Config{
		BlockedTerms:         []string{"罪恶之渊"},
		WhitelistTitles:      []string{"罪恶之渊"},
		QueryWhitelistBypass: true,
	})
	if QueryBlocked("罪恶之渊", policy) {
		t.Fatal("exact whitelisted query should bypass the short-circuit when enabled")
	}
	if !QueryBlocked("罪恶之渊 第二季", policy) {
		t.Fatal("bypass applies to exact matches only")
	}
}

func TestNormalizePunctuationAndWidth(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ＣＡＳＩＮＯ", "casino"},
		{"a　b", "a b"},
		{"Foo—Bar", "foo-bar"},
		{"  spaced\t out \n", "spaced out"},
		{"ＳＷＡＧ精选", "swag精选"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
