package dynamodb

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// fakeDynamo is an in-memory DynamoAPI for repository tests. It understands
// the exact expression shapes this package issues: equality/begins_with key
// conditions, conjunctive equality filters, and attribute_exists /
// attribute_not_exists put conditions. Indexes can be marked missing to drive
// the scan-fallback paths.
type fakeDynamo struct {
	mu             sync.Mutex
	items          map[string]map[string]types.AttributeValue
	missingIndexes map[string]bool
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items:          make(map[string]map[string]types.AttributeValue),
		missingIndexes: make(map[string]bool),
	}
}

func (f *fakeDynamo) markIndexMissing(index string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missingIndexes[index] = true
}

func attrS(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return attrS(item["PK"]) + "|" + attrS(item["SK"])
}

func keyOf(key map[string]types.AttributeValue) string {
	return attrS(key["PK"]) + "|" + attrS(key["SK"])
}

func attrEqual(a, b types.AttributeValue) bool {
	switch x := a.(type) {
	case *types.AttributeValueMemberS:
		y, ok := b.(*types.AttributeValueMemberS)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberN:
		y, ok := b.(*types.AttributeValueMemberN)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberBOOL:
		y, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && x.Value == y.Value
	}
	return false
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[keyOf(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := itemKey(params.Item)
	_, exists := f.items[key]

	if params.ConditionExpression != nil {
		cond := *params.ConditionExpression
		if strings.Contains(cond, "attribute_not_exists") && exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if strings.Contains(cond, "attribute_exists") && !strings.Contains(cond, "attribute_not_exists") && !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}

	f.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := keyOf(params.Key)
	old, exists := f.items[key]
	delete(f.items, key)

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && exists {
		out.Attributes = copyItem(old)
	}
	return out, nil
}

// keyClause is one parsed term of a key condition expression.
type keyClause struct {
	attr       string
	value      types.AttributeValue
	beginsWith bool
}

func parseKeyCondition(cond string, values map[string]types.AttributeValue) []keyClause {
	var clauses []keyClause
	for _, part := range strings.Split(cond, " AND ") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "begins_with(") {
			inner := strings.TrimSuffix(strings.TrimPrefix(part, "begins_with("), ")")
			fields := strings.SplitN(inner, ",", 2)
			clauses = append(clauses, keyClause{
				attr:       strings.TrimSpace(fields[0]),
				value:      values[strings.TrimSpace(fields[1])],
				beginsWith: true,
			})
			continue
		}
		fields := strings.SplitN(part, "=", 2)
		clauses = append(clauses, keyClause{
			attr:  strings.TrimSpace(fields[0]),
			value: values[strings.TrimSpace(fields[1])],
		})
	}
	return clauses
}

func matchesClauses(item map[string]types.AttributeValue, clauses []keyClause) bool {
	for _, c := range clauses {
		got, ok := item[c.attr]
		if !ok {
			return false
		}
		if c.beginsWith {
			if !strings.HasPrefix(attrS(got), attrS(c.value)) {
				return false
			}
			continue
		}
		if !attrEqual(got, c.value) {
			return false
		}
	}
	return true
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if params.IndexName != nil && f.missingIndexes[*params.IndexName] {
		return nil, &smithy.GenericAPIError{
			Code:    "ValidationException",
			Message: "The table does not have the specified index: " + *params.IndexName,
		}
	}

	clauses := parseKeyCondition(*params.KeyConditionExpression, params.ExpressionAttributeValues)

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if matchesClauses(item, clauses) {
			matched = append(matched, copyItem(item))
		}
	}

	// Sort by the range attribute of whichever key schema was queried.
	sortAttr := strings.Replace(clauses[0].attr, "PK", "SK", 1)
	sort.Slice(matched, func(i, j int) bool {
		return attrS(matched[i][sortAttr]) < attrS(matched[j][sortAttr])
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if params.Limit != nil && len(matched) > int(*params.Limit) {
		matched = matched[:int(*params.Limit)]
	}

	out := &dynamodb.QueryOutput{Count: int32(len(matched))}
	if params.Select != types.SelectCount {
		out.Items = matched
	}
	return out, nil
}

var filterEquality = regexp.MustCompile(`(#\w+) = (:\w+)`)

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if f.matchesFilter(item, params) {
			matched = append(matched, copyItem(item))
		}
	}

	out := &dynamodb.ScanOutput{Count: int32(len(matched))}
	if params.Select != types.SelectCount {
		out.Items = matched
	}
	return out, nil
}

// matchesFilter evaluates the conjunctive equality filters produced by the
// expression builder in this package.
func (f *fakeDynamo) matchesFilter(item map[string]types.AttributeValue, params *dynamodb.ScanInput) bool {
	if params.FilterExpression == nil {
		return true
	}
	for _, m := range filterEquality.FindAllStringSubmatch(*params.FilterExpression, -1) {
		attr := params.ExpressionAttributeNames[m[1]]
		want := params.ExpressionAttributeValues[m[2]]
		got, ok := item[attr]
		if !ok || !attrEqual(got, want) {
			return false
		}
	}
	return true
}
