package sqlinline

const QSelectKV = `--sql 0ba43224-d2ec-4f7c-a5ef-eade07702af7
select value from kv_store where key = $1::text;
`

const QUpsertKV = `--sql 31e3b34a-e41b-42f2-8be6-8c4aca1c2163
insert into kv_store(key, value, updated_at)
values ($1::text, $2::text, now())
on conflict (key) do update set value = excluded.value, updated_at = excluded.updated_at;
`
