package seed

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// UserFixture is the input for registering a generated user.
type UserFixture struct {
	Email      string
	Nickname   string
	Password   string
	ProfileURL string
}

// PostFixture is the input for creating a generated post.
type PostFixture struct {
	Title   string
	Content string
	Tags    []string
}

// Factory generates realistic fixture data. A fixed seed yields the same sequence.
type Factory struct {
	faker *gofakeit.Faker
	seq   int
}

// NewFactory creates a Factory. Seed 0 picks a random seed.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

func (f *Factory) next() int {
	f.seq++
	return f.seq
}

// User returns a user fixture whose email and nickname are unique within this factory.
func (f *Factory) User() UserFixture {
	n := f.next()
	nick := strings.ToLower(f.faker.Username())
	if len(nick) > 30 {
		nick = nick[:30]
	}
	return UserFixture{
		Email:      fmt.Sprintf("%s.%d@%s", strings.ToLower(f.faker.FirstName()), n, f.faker.DomainName()),
		Nickname:   fmt.Sprintf("%s-%d", nick, n),
		Password:   f.faker.Password(true, true, true, false, false, 14),
		ProfileURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
}

// Post returns a post fixture with up to maxTags tags.
func (f *Factory) Post(maxTags int) PostFixture {
	p := PostFixture{
		Title:   strings.TrimSuffix(f.faker.Sentence(6), "."),
		Content: f.faker.Paragraph(2, 3, 12, "\n\n"),
	}
	if maxTags > 0 {
		p.Tags = f.Tags(f.faker.Number(0, maxTags))
	}
	return p
}

// Comment returns comment text.
func (f *Factory) Comment() string {
	return f.faker.Sentence(f.faker.Number(4, 18))
}

// Tags returns n distinct lowercase tag names.
func (f *Factory) Tags(n int) []string {
	seen := make(map[string]bool, n)
	tags := make([]string, 0, n)
	for attempts := 0; len(tags) < n && attempts < n*10; attempts++ {
		word := strings.ToLower(f.faker.Hobby())
		word = strings.ReplaceAll(word, " ", "-")
		if seen[word] {
			continue
		}
		seen[word] = true
		tags = append(tags, word)
	}
	return tags
}

// Pick returns a pseudo-random index in [0, n).
func (f *Factory) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}
